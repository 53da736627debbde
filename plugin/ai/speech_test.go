package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechService_Disabled(t *testing.T) {
	svc := NewSpeechService(&SpeechConfig{Enabled: false})

	_, err := svc.Transcribe(context.Background(), []byte("x"), "")
	assert.ErrorIs(t, err, ErrSpeechDisabled)

	_, err = svc.Synthesize(context.Background(), "hello", "")
	assert.ErrorIs(t, err, ErrSpeechDisabled)
}

func TestSpeechService_OpenAI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  create a task to call Bob  "}`))
	})
	mux.HandleFunc("/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewSpeechService(&SpeechConfig{Enabled: true, APIKey: "k", BaseURL: srv.URL, Voice: "alloy"})

	text, err := svc.Transcribe(context.Background(), []byte("fake-webm"), "voice.webm")
	require.NoError(t, err)
	assert.Equal(t, "create a task to call Bob", text)

	audio, err := svc.Synthesize(context.Background(), "Done.", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-audio"), audio)

	_, err = svc.Transcribe(context.Background(), nil, "")
	assert.Error(t, err)
}
