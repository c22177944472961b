package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration. The hosted-service
// credential is never read from the YAML file; it comes from the
// environment variable named by OpenAI.APIKeyEnv, once, in Load.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Network NetworkConfig `yaml:"network"`
	Logging LoggingConfig `yaml:"logging"`

	APIKey string `yaml:"-" json:"-"`
}

type ServerConfig struct {
	Listen         string `yaml:"listen" jsonschema:"description=Listen address (host:port)"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" jsonschema:"description=Largest accepted uploaded audio file"`
}

type OpenAIConfig struct {
	// Provider selects the adapters: "openai" or "stub" (offline, deterministic).
	Provider           string `yaml:"provider" jsonschema:"enum=openai,enum=stub"`
	BaseURL            string `yaml:"base_url"`
	APIKeyEnv          string `yaml:"api_key_env" jsonschema:"description=Environment variable holding the bearer credential"`
	TranscriptionModel string `yaml:"transcription_model"`
	ChatModel          string `yaml:"chat_model"`
	SpeechModel        string `yaml:"speech_model"`
	Voice              string `yaml:"voice"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	Channels      int     `yaml:"channels"`
	WindowSeconds float64 `yaml:"window_seconds" jsonschema:"description=Wall-clock length of one streaming capture window"`
	QueueBlocks   int     `yaml:"queue_blocks" jsonschema:"description=Capacity of the captured block queue"`
}

type SessionConfig struct {
	IdleTTLMinutes int    `yaml:"idle_ttl_minutes"`
	CookieSecret   string `yaml:"cookie_secret" jsonschema:"description=HMAC secret for session cookies; random per process when empty"`
}

type NetworkConfig struct {
	Enabled      bool     `yaml:"enabled"`
	AllowDomains []string `yaml:"allow_domains"`
}

type LoggingConfig struct {
	Level string `yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:         "127.0.0.1:8085",
			MaxUploadBytes: 25 << 20,
		},
		OpenAI: OpenAIConfig{
			Provider:           "openai",
			BaseURL:            "https://api.openai.com",
			APIKeyEnv:          "OPENAI_API_KEY",
			TranscriptionModel: "whisper-1",
			ChatModel:          "gpt-4",
			SpeechModel:        "tts-1",
			Voice:              "echo",
			TimeoutSeconds:     120,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			WindowSeconds: 5,
			QueueBlocks:   256,
		},
		Session: SessionConfig{
			IdleTTLMinutes: 120,
		},
		Network: NetworkConfig{
			Enabled:      true,
			AllowDomains: []string{"api.openai.com"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// Path is an optional YAML file. An explicit path that does not exist is an error.
	Path string

	// EnvFile is a dotenv file; empty means ".env" in the working directory, best-effort.
	EnvFile string

	// Override applies command-line overrides before validation.
	Override func(*Config)
}

// Load builds the effective configuration: defaults, then the YAML file,
// then the dotenv file, then the credential lookup.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(opts.Path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	envFile := strings.TrimSpace(opts.EnvFile)
	explicitEnv := envFile != ""
	if !explicitEnv {
		envFile = ".env"
	}
	// Existing process env wins over the dotenv file.
	if err := godotenv.Load(envFile); err != nil {
		if explicitEnv || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv(cfg.OpenAI.APIKeyEnv))

	if opts.Override != nil {
		opts.Override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server: listen cannot be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server: max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if err := c.OpenAI.Validate(c.APIKey); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if c.Session.IdleTTLMinutes < 1 {
		return fmt.Errorf("session: idle_ttl_minutes must be at least 1, got %d", c.Session.IdleTTLMinutes)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	return nil
}

func (o *OpenAIConfig) Validate(apiKey string) error {
	switch o.Provider {
	case "stub":
		return nil
	case "openai":
	default:
		return fmt.Errorf("provider must be 'openai' or 'stub', got %q", o.Provider)
	}
	if strings.TrimSpace(o.BaseURL) == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if apiKey == "" {
		return fmt.Errorf("missing API key in env var %s", o.APIKeyEnv)
	}
	for name, v := range map[string]string{
		"transcription_model": o.TranscriptionModel,
		"chat_model":          o.ChatModel,
		"speech_model":        o.SpeechModel,
		"voice":               o.Voice,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	if o.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", o.TimeoutSeconds)
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}
	if a.WindowSeconds <= 0 || a.WindowSeconds > 60 {
		return fmt.Errorf("window_seconds must be in (0, 60], got %g", a.WindowSeconds)
	}
	if a.QueueBlocks < 1 {
		return fmt.Errorf("queue_blocks must be at least 1, got %d", a.QueueBlocks)
	}
	return nil
}

func (o OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (a AudioConfig) Window() time.Duration {
	return time.Duration(a.WindowSeconds * float64(time.Second))
}

func (s SessionConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}
