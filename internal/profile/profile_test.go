package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDefaults(t *testing.T) {
	p := FromViper(NewViper())

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, 8081, p.Port)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, "openai", p.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", p.LLM.Model)
	assert.Equal(t, 12*time.Second, p.LLM.Timeout)
	assert.Equal(t, "memory", p.KV.Driver)
	assert.Equal(t, 24*time.Hour, p.KV.TTL)
	assert.Equal(t, "alloy", p.Speech.Voice)
	assert.Equal(t, 5.0, p.RateLimit)
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) any
		expected any
	}{
		{"driver", "COWORKR_DRIVER", "postgres", func(p *Profile) any { return p.Driver }, "postgres"},
		{"llm provider", "COWORKR_LLM_PROVIDER", "gemini", func(p *Profile) any { return p.LLM.Provider }, "gemini"},
		{"llm api key", "COWORKR_LLM_API_KEY", "sk-test", func(p *Profile) any { return p.LLM.APIKey }, "sk-test"},
		{"llm timeout", "COWORKR_LLM_TIMEOUT", "5s", func(p *Profile) any { return p.LLM.Timeout }, 5 * time.Second},
		{"kv driver", "COWORKR_KV_DRIVER", "redis", func(p *Profile) any { return p.KV.Driver }, "redis"},
		{"redis addr", "COWORKR_KV_REDIS_ADDR", "localhost:6379", func(p *Profile) any { return p.KV.RedisAddr }, "localhost:6379"},
		{"calendar", "COWORKR_CALENDAR_BASE_URL", "https://cal.example.com", func(p *Profile) any { return p.Calendar.BaseURL }, "https://cal.example.com"},
		{"speech", "COWORKR_SPEECH_ENABLED", "true", func(p *Profile) any { return p.Speech.Enabled }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.envValue)
			p := FromViper(NewViper())
			assert.Equal(t, tt.expected, tt.field(p))
		})
	}
}

func TestProfileValidate(t *testing.T) {
	t.Run("sqlite dsn defaults into data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := FromViper(NewViper())
		p.Data = dir

		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "coworkr_dev.db"), p.DSN)
	})

	t.Run("unknown mode becomes demo", func(t *testing.T) {
		p := FromViper(NewViper())
		p.Data = t.TempDir()
		p.Mode = "staging"

		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := FromViper(NewViper())
		p.Data = t.TempDir()
		p.Driver = "postgres"

		assert.Error(t, p.Validate())
	})

	t.Run("unknown llm provider", func(t *testing.T) {
		p := FromViper(NewViper())
		p.Data = t.TempDir()
		p.LLM.Provider = "llamafile"

		assert.Error(t, p.Validate())
	})

	t.Run("badger dir defaults into data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := FromViper(NewViper())
		p.Data = dir
		p.KV.Driver = "badger"

		require.NoError(t, p.Validate())
		assert.Equal(t, filepath.Join(dir, "kv"), p.KV.BadgerDir)
	})

	t.Run("speech key falls back to llm key", func(t *testing.T) {
		p := FromViper(NewViper())
		p.Data = t.TempDir()
		p.LLM.APIKey = "sk-llm"

		require.NoError(t, p.Validate())
		assert.Equal(t, "sk-llm", p.Speech.APIKey)
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := FromViper(NewViper())
		p.Data = filepath.Join(t.TempDir(), "missing")

		assert.Error(t, p.Validate())
	})
}
