// Package config loads gateway settings from a YAML file, a .env file and
// PEREVOICE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// PEREVOICE_SERVER_PORT=9000.
const EnvPrefix = "PEREVOICE"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Translation TranslationConfig `mapstructure:"translation"`
	Speech      SpeechConfig      `mapstructure:"speech"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SoftErrors reports translation failures with HTTP 200 and an
	// "error" field, the way the first version of the API did.
	SoftErrors bool `mapstructure:"soft_errors"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type CORSConfig struct {
	// AllowedOrigins restricts reflected origins. Empty means any origin.
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	// Requests per Window per client IP. Zero disables limiting.
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type TranslationConfig struct {
	Services    []string        `mapstructure:"services"`
	SourceLang  string          `mapstructure:"source_lang"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	MaxAttempts int             `mapstructure:"max_attempts"`
	RetryDelay  time.Duration   `mapstructure:"retry_delay"`
	Validate    bool            `mapstructure:"validate"`
	Google      GoogleConfig    `mapstructure:"google"`
	GoogleWeb   GoogleWebConfig `mapstructure:"googleweb"`
	MyMemory    MyMemoryConfig  `mapstructure:"mymemory"`
	Systran     APIConfig       `mapstructure:"systran"`
	Ollama      ModelsConfig    `mapstructure:"ollama"`
	OpenRouter  ModelsConfig    `mapstructure:"openrouter"`
}

type SpeechConfig struct {
	Provider   string        `mapstructure:"provider"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ChunkSize  int           `mapstructure:"chunk_size"`
	Slow       bool          `mapstructure:"slow"`
	TLD        string        `mapstructure:"tld"`
	OpenAI     VoiceConfig   `mapstructure:"openai"`
	ElevenLabs VoiceConfig   `mapstructure:"elevenlabs"`
	Google     GoogleConfig  `mapstructure:"google"`
}

type CacheConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	DBPath         string  `mapstructure:"db_path"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	SpeechMaxBytes int     `mapstructure:"speech_max_bytes"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
	ProjectID   string `mapstructure:"project_id"`
}

type GoogleWebConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type MyMemoryConfig struct {
	Email   string `mapstructure:"email"`
	BaseURL string `mapstructure:"base_url"`
}

type APIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type ModelsConfig struct {
	APIKey  string   `mapstructure:"api_key"`
	BaseURL string   `mapstructure:"base_url"`
	Models  []string `mapstructure:"models"`
}

type VoiceConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

var (
	translationServices = map[string]bool{
		"googleweb": true, "google": true, "mymemory": true,
		"systran": true, "ollama": true, "openrouter": true,
	}
	speechProviders = map[string]bool{
		"googleweb": true, "google": true, "openai": true, "elevenlabs": true,
	}
)

// SetDefaults registers every key so that environment overrides are picked
// up by Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.soft_errors", false)

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("rate_limit.requests", 0)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("translation.services", []string{"googleweb"})
	v.SetDefault("translation.source_lang", "auto")
	v.SetDefault("translation.timeout", 30*time.Second)
	v.SetDefault("translation.max_attempts", 2)
	v.SetDefault("translation.retry_delay", 500*time.Millisecond)
	v.SetDefault("translation.validate", false)
	v.SetDefault("translation.google.credentials", "")
	v.SetDefault("translation.google.project_id", "")
	v.SetDefault("translation.googleweb.base_url", "")
	v.SetDefault("translation.mymemory.email", "")
	v.SetDefault("translation.mymemory.base_url", "")
	v.SetDefault("translation.systran.api_key", "")
	v.SetDefault("translation.systran.base_url", "")
	v.SetDefault("translation.ollama.base_url", "http://localhost:11434")
	v.SetDefault("translation.ollama.models", []string{})
	v.SetDefault("translation.openrouter.api_key", "")
	v.SetDefault("translation.openrouter.base_url", "")
	v.SetDefault("translation.openrouter.models", []string{})

	v.SetDefault("speech.provider", "googleweb")
	v.SetDefault("speech.timeout", 60*time.Second)
	v.SetDefault("speech.chunk_size", 100)
	v.SetDefault("speech.slow", false)
	v.SetDefault("speech.tld", "com")
	v.SetDefault("speech.openai.api_key", "")
	v.SetDefault("speech.openai.base_url", "")
	v.SetDefault("speech.openai.model", "tts-1")
	v.SetDefault("speech.openai.voice", "alloy")
	v.SetDefault("speech.elevenlabs.api_key", "")
	v.SetDefault("speech.elevenlabs.base_url", "")
	v.SetDefault("speech.elevenlabs.model", "eleven_multilingual_v2")
	v.SetDefault("speech.elevenlabs.voice", "")
	v.SetDefault("speech.google.credentials", "")
	v.SetDefault("speech.google.project_id", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.db_path", "./data/perevoice.db")
	v.SetDefault("cache.fuzzy_threshold", 0.0)
	v.SetDefault("cache.speech_max_bytes", 5<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration into v and returns the decoded Config.
//
// When configFile is empty, perevoice.yaml is looked up in the working
// directory and in $HOME/.config/perevoice; a missing file is not an error.
// A .env file in the working directory is loaded into the process
// environment first, without overriding variables that are already set.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("perevoice")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "perevoice"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and provider names.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Translation.Timeout <= 0 {
		return fmt.Errorf("translation.timeout must be positive")
	}
	if c.Speech.Timeout <= 0 {
		return fmt.Errorf("speech.timeout must be positive")
	}
	if len(c.Translation.Services) == 0 {
		return fmt.Errorf("translation.services must name at least one service")
	}
	for _, name := range c.Translation.Services {
		if !translationServices[name] {
			return fmt.Errorf("unknown translation service %q", name)
		}
	}
	if !speechProviders[c.Speech.Provider] {
		return fmt.Errorf("unknown speech provider %q", c.Speech.Provider)
	}
	if c.Cache.FuzzyThreshold < 0 || c.Cache.FuzzyThreshold > 1 {
		return fmt.Errorf("cache.fuzzy_threshold must be within [0, 1]")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive when limiting is enabled")
	}
	return nil
}
