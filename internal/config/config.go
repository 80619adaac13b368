// Package config loads application settings from the environment, an
// optional .env file and the prompt canvas file.  Load fails fast: a
// missing credential or prompt canvas stops the server before it listens.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"mdx-assistant/internal/core"
	"mdx-assistant/internal/i18n"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Prompt  PromptConfig
	I18n    I18nConfig
	Limits  LimitsConfig
	Session SessionConfig
	Log     LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// OpenAIConfig holds model endpoint configuration
type OpenAIConfig struct {
	APIKey           string
	Model            string
	BaseURL          string
	Temperature      float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
	Timeout          time.Duration
	UseNewClient     bool
}

// PromptConfig holds the prompt canvas and composer selection
type PromptConfig struct {
	Strategy         core.Strategy
	StructuredOutput bool
	CanvasPath       string
	SystemPrompt     string
	Words            []string
}

// I18nConfig holds translation settings
type I18nConfig struct {
	DefaultLanguage  string
	TranslationsPath string
}

// LimitsConfig holds form constraints
type LimitsConfig struct {
	MaxFieldLength int
}

// SessionConfig holds the session result cache settings
type SessionConfig struct {
	RedisURL   string
	TTL        time.Duration
	MaxEntries int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// ConfigurationError lists every setting that prevents startup.
type ConfigurationError struct {
	Problems []string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid configuration: " + strings.Join(e.Problems, "; ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type canvasFile struct {
	PromptCanvas struct {
		PromptSystem string   `toml:"prompt_system"`
		PromptWords  []string `toml:"prompt_words"`
	} `toml:"prompt_canvas"`
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigurationError{Problems: []string{"cannot read " + envFile}, Err: err}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("APP_ENV", "production"),
		},
		OpenAI: OpenAIConfig{
			APIKey:           getEnv("OPENAI_API_KEY", ""),
			Model:            getEnv("OPENAI_API_MODEL", "gpt-4o-mini"),
			BaseURL:          getEnv("OPENAI_BASE_URL", ""),
			Temperature:      getEnvAsFloat32("OPENAI_API_TEMP", 0.7),
			MaxTokens:        getEnvAsInt("OPENAI_API_MAXTOK", 1000),
			FrequencyPenalty: getEnvAsFloat32("OPENAI_API_FREQP", 0),
			PresencePenalty:  getEnvAsFloat32("OPENAI_API_PRESP", 0),
			Timeout:          getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			UseNewClient:     getEnvAsBool("USE_NEW_AI_CLIENT", false),
		},
		Prompt: PromptConfig{
			Strategy:         core.Strategy(getEnv("PROMPT_STRATEGY", string(core.StrategyLegacy))),
			StructuredOutput: getEnvAsBool("STRUCTURED_OUTPUT", false),
			CanvasPath:       getEnv("PROMPT_CANVAS_PATH", ""),
		},
		I18n: I18nConfig{
			DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", i18n.DefaultLanguage),
			TranslationsPath: getEnv("TRANSLATIONS_PATH", ""),
		},
		Limits: LimitsConfig{
			MaxFieldLength: getEnvAsInt("FIELD_MAX_LENGTH", core.DefaultMaxFieldLength),
		},
		Session: SessionConfig{
			RedisURL:   getEnv("REDIS_URL", ""),
			TTL:        getEnvAsDuration("SESSION_TTL", time.Hour),
			MaxEntries: getEnvAsInt("SESSION_MAX_ENTRIES", 10000),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Prompt.CanvasPath != "" {
		system, words, err := loadCanvas(cfg.Prompt.CanvasPath)
		if err != nil {
			return nil, &ConfigurationError{Problems: []string{"cannot load prompt canvas " + cfg.Prompt.CanvasPath}, Err: err}
		}
		cfg.Prompt.SystemPrompt, cfg.Prompt.Words = system, words
	} else {
		cfg.Prompt.SystemPrompt = core.DefaultSystemPrompt
		cfg.Prompt.Words = append([]string(nil), core.DefaultPromptWords...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCanvas(path string) (string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	var cf canvasFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return "", nil, fmt.Errorf("decode prompt canvas: %w", err)
	}
	return cf.PromptCanvas.PromptSystem, cf.PromptCanvas.PromptWords, nil
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	var problems []string
	if c.OpenAI.APIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(c.Prompt.SystemPrompt) == "" {
		problems = append(problems, "system prompt is required")
	}
	if len(c.Prompt.Words) == 0 {
		problems = append(problems, "prompt words are required")
	}
	switch c.Prompt.Strategy {
	case core.StrategyLegacy, core.StrategyStructured:
	default:
		problems = append(problems, fmt.Sprintf("unknown PROMPT_STRATEGY %q", c.Prompt.Strategy))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		problems = append(problems, "OPENAI_API_TEMP must be between 0 and 2")
	}
	if c.OpenAI.MaxTokens <= 0 {
		problems = append(problems, "OPENAI_API_MAXTOK must be positive")
	}
	if c.Prompt.StructuredOutput && !c.OpenAI.UseNewClient {
		// the legacy gateway cannot request structured output
		problems = append(problems, "STRUCTURED_OUTPUT=true requires USE_NEW_AI_CLIENT=true")
	}
	if c.Limits.MaxFieldLength <= 0 {
		problems = append(problems, "FIELD_MAX_LENGTH must be positive")
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
