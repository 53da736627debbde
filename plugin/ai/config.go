package ai

import (
	"errors"
	"time"

	"github.com/hrygo/coworkr/internal/profile"
	"github.com/hrygo/coworkr/plugin/ai/timeout"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM    LLMConfig
	Speech SpeechConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, gemini
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int           // default: 1024
	Temperature float32       // default: 0.3
	Timeout     time.Duration // per call, default: 12s
	MaxRetries  int           // default: 2
}

// SpeechConfig represents transcription and synthesis configuration.
type SpeechConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Voice   string // alloy
}

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.3
	defaultTimeout     = timeout.LLMCallTimeout
	defaultMaxRetries  = 2
)

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
		LLM: LLMConfig{
			Provider:    p.LLM.Provider,
			Model:       p.LLM.Model,
			APIKey:      p.LLM.APIKey,
			BaseURL:     p.LLM.BaseURL,
			MaxTokens:   p.LLM.MaxTokens,
			Temperature: p.LLM.Temperature,
			Timeout:     p.LLM.Timeout,
			MaxRetries:  defaultMaxRetries,
		},
		Speech: SpeechConfig{
			Enabled: p.Speech.Enabled,
			APIKey:  p.Speech.APIKey,
			BaseURL: p.Speech.BaseURL,
			Voice:   p.Speech.Voice,
		},
	}

	if cfg.LLM.Provider == "deepseek" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com"
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = defaultMaxTokens
	}
	if cfg.LLM.Temperature <= 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = defaultTimeout
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = "alloy"
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return errors.New("LLM API key is required")
	}

	if c.Speech.Enabled && c.Speech.APIKey == "" {
		return errors.New("speech API key is required")
	}

	return nil
}
