package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server contains bind and logging settings.
type Server struct {
	Port        string `toml:"port"`
	Environment string `toml:"environment"`
	LogLevel    string `toml:"log_level"`
}

// Resolver contains the template used to turn a symbolic name into a URL.
type Resolver struct {
	BaseURL     string `toml:"base_url"`
	SystemToken string `toml:"system_token"`
	PathPrefix  string `toml:"path_prefix"`
}

type Fetch struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Audio contains preprocessing settings.
type Audio struct {
	PadMillis int `toml:"pad_millis"`
}

// Transcription contains Google Speech-to-Text settings.
type Transcription struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Mock           bool   `toml:"mock"`
}

// Gemini contains generative-text settings.
type Gemini struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float32 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Mock           bool    `toml:"mock"`
}

// Telegram contains the outbound chat destination.
type Telegram struct {
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Config is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Server        Server        `toml:"server"`
	Resolver      Resolver      `toml:"resolver"`
	Fetch         Fetch         `toml:"fetch"`
	Audio         Audio         `toml:"audio"`
	Transcription Transcription `toml:"transcription"`
	Gemini        Gemini        `toml:"gemini"`
	Telegram      Telegram      `toml:"telegram"`
}

// Default returns a configuration populated with default values.
func Default() Config {
	return Config{
		Server: Server{
			Port:     "5000",
			LogLevel: "info",
		},
		Resolver: Resolver{
			BaseURL:    "https://www.call2all.co.il/ym/api/DownloadFile",
			PathPrefix: "ivr2:/",
		},
		Fetch: Fetch{TimeoutSeconds: 15},
		Audio: Audio{PadMillis: 1000},
		Transcription: Transcription{
			BaseURL:        "https://speech.googleapis.com/v1/speech:recognize",
			Language:       "he-IL",
			TimeoutSeconds: 30,
		},
		Gemini: Gemini{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-2.5-flash",
			Temperature:    0.2,
			TimeoutSeconds: 20,
		},
		Telegram: Telegram{
			BaseURL:        "https://api.telegram.org",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads .env (if present), the optional TOML file at path, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // loads .env

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s not found", path)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("PORT", &c.Server.Port)
	str("ENVIRONMENT", &c.Server.Environment)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("SYSTEM_TOKEN", &c.Resolver.SystemToken)
	str("GOOGLE_SPEECH_API_KEY", &c.Transcription.APIKey)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	flag("USE_MOCK_TRANSCRIBE", &c.Transcription.Mock)
	flag("USE_MOCK_LLM", &c.Gemini.Mock)
}

// Validate checks required fields and fills zero values with defaults.
func (c *Config) Validate() error {
	def := Default()

	if c.Server.Port == "" {
		c.Server.Port = def.Server.Port
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", c.Server.Port)
	}
	if c.Resolver.BaseURL == "" {
		c.Resolver.BaseURL = def.Resolver.BaseURL
	}
	if !strings.HasPrefix(c.Resolver.BaseURL, "http") {
		return fmt.Errorf("resolver.base_url must be an absolute URL")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = def.Fetch.TimeoutSeconds
	}
	if c.Audio.PadMillis < 0 {
		return fmt.Errorf("audio.pad_millis must not be negative")
	}
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = def.Transcription.BaseURL
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = def.Transcription.Language
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = def.Transcription.TimeoutSeconds
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = def.Gemini.BaseURL
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = def.Gemini.Model
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini.temperature must be within [0, 2]")
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = def.Gemini.TimeoutSeconds
	}
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = def.Telegram.BaseURL
	}
	if c.Telegram.TimeoutSeconds <= 0 {
		c.Telegram.TimeoutSeconds = def.Telegram.TimeoutSeconds
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when a bot token is set")
	}
	return nil
}

// Sample renders the defaults as a TOML document.
func Sample() ([]byte, error) {
	return toml.Marshal(Default())
}

// Setting is one effective configuration value.
type Setting struct {
	Key   string
	Value string
}

// Settings lists the effective values with credentials masked.
func (c Config) Settings() []Setting {
	return []Setting{
		{"server.port", c.Server.Port},
		{"server.environment", c.Server.Environment},
		{"server.log_level", c.Server.LogLevel},
		{"resolver.base_url", c.Resolver.BaseURL},
		{"resolver.system_token", mask(c.Resolver.SystemToken)},
		{"resolver.path_prefix", c.Resolver.PathPrefix},
		{"fetch.timeout_seconds", strconv.Itoa(c.Fetch.TimeoutSeconds)},
		{"audio.pad_millis", strconv.Itoa(c.Audio.PadMillis)},
		{"transcription.api_key", mask(c.Transcription.APIKey)},
		{"transcription.base_url", c.Transcription.BaseURL},
		{"transcription.language", c.Transcription.Language},
		{"transcription.timeout_seconds", strconv.Itoa(c.Transcription.TimeoutSeconds)},
		{"transcription.mock", strconv.FormatBool(c.Transcription.Mock)},
		{"gemini.api_key", mask(c.Gemini.APIKey)},
		{"gemini.base_url", c.Gemini.BaseURL},
		{"gemini.model", c.Gemini.Model},
		{"gemini.temperature", strconv.FormatFloat(float64(c.Gemini.Temperature), 'f', -1, 32)},
		{"gemini.timeout_seconds", strconv.Itoa(c.Gemini.TimeoutSeconds)},
		{"gemini.mock", strconv.FormatBool(c.Gemini.Mock)},
		{"telegram.bot_token", mask(c.Telegram.BotToken)},
		{"telegram.chat_id", c.Telegram.ChatID},
		{"telegram.base_url", c.Telegram.BaseURL},
		{"telegram.timeout_seconds", strconv.Itoa(c.Telegram.TimeoutSeconds)},
	}
}

func mask(secret string) string {
	switch {
	case secret == "":
		return "(unset)"
	case len(secret) <= 4:
		return "****"
	default:
		return "****" + secret[len(secret)-4:]
	}
}
