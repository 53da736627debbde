package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/coworkr/plugin/ai/timeout"
)

// ErrSpeechDisabled is returned when no speech backend is configured.
var ErrSpeechDisabled = errors.New("speech services are disabled")

// SpeechService transcribes and synthesizes audio. Failures are expected to
// degrade to text-only interaction at the call site.
type SpeechService interface {
	// Transcribe turns recorded audio into text. filename carries the
	// container format (for example "voice.webm").
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	// Synthesize renders text as mp3 audio. An empty voice uses the default.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

type speechService struct {
	client *openai.Client
	voice  string
}

// NewSpeechService creates a SpeechService backed by the OpenAI audio API.
func NewSpeechService(cfg *SpeechConfig) SpeechService {
	if cfg == nil || !cfg.Enabled {
		return disabledSpeech{}
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &speechService{
		client: openai.NewClientWithConfig(clientConfig),
		voice:  cfg.Voice,
	}
}

func (s *speechService) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	if filename == "" {
		filename = "voice.webm"
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.SpeechTimeout)
	defer cancel()
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *speechService) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = s.voice
	}
	ctx, cancel := context.WithTimeout(ctx, timeout.SpeechTimeout)
	defer cancel()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}

type disabledSpeech struct{}

func (disabledSpeech) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrSpeechDisabled
}

func (disabledSpeech) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, ErrSpeechDisabled
}

var (
	_ SpeechService = (*speechService)(nil)
	_ SpeechService = disabledSpeech{}
)
