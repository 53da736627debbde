package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the profile.
const EnvPrefix = "COWORKR"

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where coworkr stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone used to interpret spoken dates.
	Timezone string
	// DefaultTeam is used for callers that are not on any roster.
	DefaultTeam string

	LogLevel  string // COWORKR_LOG_LEVEL (default: info)
	LogFormat string // COWORKR_LOG_FORMAT (text|json, default: text)

	JWTSecret string  // COWORKR_JWT_SECRET
	RateLimit float64 // COWORKR_RATE_LIMIT requests per second per caller (default: 5)
	RateBurst int     // COWORKR_RATE_BURST (default: 10)

	LLM      LLMProfile
	Speech   SpeechProfile
	KV       KVProfile
	Calendar CalendarProfile
}

// LLMProfile configures the language-understanding capability.
type LLMProfile struct {
	Provider    string        // COWORKR_LLM_PROVIDER (openai|deepseek|gemini, default: openai)
	Model       string        // COWORKR_LLM_MODEL (default: gpt-4o-mini)
	APIKey      string        // COWORKR_LLM_API_KEY
	BaseURL     string        // COWORKR_LLM_BASE_URL
	Timeout     time.Duration // COWORKR_LLM_TIMEOUT (default: 12s)
	MaxTokens   int           // COWORKR_LLM_MAX_TOKENS (default: 1024)
	Temperature float32       // COWORKR_LLM_TEMPERATURE (default: 0.3)
}

// SpeechProfile configures transcription and synthesis.
type SpeechProfile struct {
	Enabled bool   // COWORKR_SPEECH_ENABLED
	APIKey  string // COWORKR_SPEECH_API_KEY (falls back to the LLM key)
	BaseURL string // COWORKR_SPEECH_BASE_URL
	Voice   string // COWORKR_SPEECH_VOICE (default: alloy)
}

// KVProfile configures the store behind conversation history and pending clarifications.
type KVProfile struct {
	Driver        string        // COWORKR_KV_DRIVER (memory|redis|badger, default: memory)
	RedisAddr     string        // COWORKR_KV_REDIS_ADDR
	RedisPassword string        // COWORKR_KV_REDIS_PASSWORD
	RedisDB       int           // COWORKR_KV_REDIS_DB
	BadgerDir     string        // COWORKR_KV_BADGER_DIR (default: <data>/kv)
	TTL           time.Duration // COWORKR_KV_TTL (default: 24h)
	Capacity      int           // COWORKR_KV_CAPACITY (default: 10000)
}

// CalendarProfile configures the external calendar.
type CalendarProfile struct {
	BaseURL string // COWORKR_CALENDAR_BASE_URL; empty disables the external calendar
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if a language model is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLM.APIKey != "" || (p.LLM.Provider != "gemini" && p.LLM.BaseURL != "")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("timezone", "Local")
	v.SetDefault("default_team", "default")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("rate.limit", 5.0)
	v.SetDefault("rate.burst", 10)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 12*time.Second)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("kv.driver", "memory")
	v.SetDefault("kv.ttl", 24*time.Hour)
	v.SetDefault("kv.capacity", 10000)
}

// NewViper returns a viper instance wired to COWORKR_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper builds a profile from the resolved configuration.
func FromViper(v *viper.Viper) *Profile {
	return &Profile{
		Mode:        v.GetString("mode"),
		Addr:        v.GetString("addr"),
		Port:        v.GetInt("port"),
		Data:        v.GetString("data"),
		DSN:         v.GetString("dsn"),
		Driver:      v.GetString("driver"),
		Version:     v.GetString("version"),
		Timezone:    v.GetString("timezone"),
		DefaultTeam: v.GetString("default_team"),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   v.GetString("log.format"),
		JWTSecret:   v.GetString("jwt.secret"),
		RateLimit:   v.GetFloat64("rate.limit"),
		RateBurst:   v.GetInt("rate.burst"),
		LLM: LLMProfile{
			Provider:    v.GetString("llm.provider"),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Timeout:     v.GetDuration("llm.timeout"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Temperature: float32(v.GetFloat64("llm.temperature")),
		},
		Speech: SpeechProfile{
			Enabled: v.GetBool("speech.enabled"),
			APIKey:  v.GetString("speech.api_key"),
			BaseURL: v.GetString("speech.base_url"),
			Voice:   v.GetString("speech.voice"),
		},
		KV: KVProfile{
			Driver:        v.GetString("kv.driver"),
			RedisAddr:     v.GetString("kv.redis_addr"),
			RedisPassword: v.GetString("kv.redis_password"),
			RedisDB:       v.GetInt("kv.redis_db"),
			BadgerDir:     v.GetString("kv.badger_dir"),
			TTL:           v.GetDuration("kv.ttl"),
			Capacity:      v.GetInt("kv.capacity"),
		},
		Calendar: CalendarProfile{
			BaseURL: v.GetString("calendar.base_url"),
		},
	}
}

// Location resolves the configured timezone, falling back to time.Local.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", "timezone", p.Timezone, "error", err)
		return time.Local
	}
	return loc
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/coworkr"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("coworkr_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	switch p.LLM.Provider {
	case "openai", "deepseek", "gemini":
	default:
		return errors.Errorf("unsupported LLM provider %q", p.LLM.Provider)
	}

	switch p.KV.Driver {
	case "memory":
	case "redis":
		if p.KV.RedisAddr == "" {
			return errors.New("kv.redis_addr is required for the redis kv driver")
		}
	case "badger":
		if p.KV.BadgerDir == "" {
			p.KV.BadgerDir = filepath.Join(dataDir, "kv")
		}
	default:
		return errors.Errorf("unsupported kv driver %q", p.KV.Driver)
	}

	if p.Mode == "prod" && p.JWTSecret == "" {
		return errors.New("jwt.secret is required in prod mode")
	}

	if p.Speech.APIKey == "" {
		p.Speech.APIKey = p.LLM.APIKey
	}
	if p.RateLimit <= 0 {
		p.RateLimit = 5
	}
	if p.RateBurst <= 0 {
		p.RateBurst = 10
	}
	return nil
}
