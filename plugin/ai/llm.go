package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// ErrInvalidJSON is returned by CompleteJSON when the reply holds no JSON object.
var ErrInvalidJSON = errors.New("LLM reply is not a JSON object")

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the language-understanding capability. It makes no
// correctness promise about what it returns; callers validate the shape.
type LLMService interface {
	// Complete returns the raw text reply for prompt.
	Complete(ctx context.Context, prompt, system string) (string, error)

	// CompleteJSON asks for a JSON object and returns the first object found
	// in the reply, with code fences stripped.
	CompleteJSON(ctx context.Context, prompt, system string) (gjson.Result, error)
}

// chatBackend is one provider's chat endpoint.
type chatBackend interface {
	chat(ctx context.Context, messages []Message, jsonMode bool) (string, error)
}

type llmService struct {
	backend    chatBackend
	provider   string
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewLLMService creates a new LLMService.
func NewLLMService(ctx context.Context, cfg *LLMConfig) (LLMService, error) {
	var (
		backend chatBackend
		err     error
	)

	switch cfg.Provider {
	case "openai", "deepseek":
		// DeepSeek is compatible with OpenAI API
		backend = newOpenAIBackend(cfg)
	case "gemini":
		backend, err = newGeminiBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	return &llmService{
		backend:    backend,
		provider:   cfg.Provider,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: retries,
	}, nil
}

func (s *llmService) Complete(ctx context.Context, prompt, system string) (string, error) {
	return s.do(ctx, FormatMessages(system, prompt), false)
}

func (s *llmService) CompleteJSON(ctx context.Context, prompt, system string) (gjson.Result, error) {
	text, err := s.do(ctx, FormatMessages(system, prompt), true)
	if err != nil {
		return gjson.Result{}, err
	}
	return ParseJSONObject(text)
}

// do runs one chat call under the configured timeout. The timeout covers all
// retries so a slow provider never holds a turn longer than that.
func (s *llmService) do(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var result string
	err := doWithRetry(ctx, s.maxRetries, func() error {
		text, err := s.backend.chat(ctx, messages, jsonMode)
		if err != nil {
			return err
		}
		result = text
		return nil
	})
	if err != nil {
		slog.Warn("LLM call failed",
			"provider", s.provider,
			"model", s.model,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	slog.Debug("LLM call completed",
		"provider", s.provider,
		"model", s.model,
		"json", jsonMode,
		"latency_ms", time.Since(start).Milliseconds())
	return result, nil
}

// doWithRetry executes a function with exponential backoff retry.
func doWithRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < maxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * 500 * time.Millisecond
			slog.Debug("LLM request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return lastErr
}

// ============================================================================
// OpenAI-compatible backend
// ============================================================================

type openaiBackend struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func newOpenAIBackend(cfg *LLMConfig) *openaiBackend {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openaiBackend{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (b *openaiBackend) chat(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    convertOpenAIMessages(messages),
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return resp.Choices[0].Message.Content, nil
}

func convertOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

// ============================================================================
// Gemini backend
// ============================================================================

type geminiBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float32
}

func newGeminiBackend(ctx context.Context, cfg *LLMConfig) (*geminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiBackend{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (b *geminiBackend) chat(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	temperature := b.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(b.maxTokens),
	}
	if jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty chat response")
	}
	return text, nil
}

// ============================================================================
// JSON extraction
// ============================================================================

var codeFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ParseJSONObject strips markdown code fences and surrounding prose from an
// LLM reply and returns the JSON object it contains.
func ParseJSONObject(text string) (gjson.Result, error) {
	s := strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return gjson.Result{}, ErrInvalidJSON
	}
	s = s[start : end+1]
	if !gjson.Valid(s) {
		return gjson.Result{}, ErrInvalidJSON
	}
	return gjson.Parse(s), nil
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// FormatMessages builds the message list for a single-shot completion.
func FormatMessages(systemPrompt string, userContent string) []Message {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	return append(messages, UserMessage(userContent))
}
