package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx-assistant/internal/core"
)

// isolate clears every variable Load reads.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "OPENAI_API_KEY", "OPENAI_API_MODEL", "OPENAI_BASE_URL",
		"OPENAI_API_TEMP", "OPENAI_API_MAXTOK", "OPENAI_API_FREQP", "OPENAI_API_PRESP",
		"OPENAI_TIMEOUT", "USE_NEW_AI_CLIENT", "PROMPT_STRATEGY", "STRUCTURED_OUTPUT",
		"PROMPT_CANVAS_PATH", "DEFAULT_LANGUAGE", "TRANSLATIONS_PATH", "FIELD_MAX_LENGTH",
		"REDIS_URL", "SESSION_TTL", "SESSION_MAX_ENTRIES", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	assert.False(t, cfg.OpenAI.UseNewClient)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, core.StrategyLegacy, cfg.Prompt.Strategy)
	assert.Equal(t, core.DefaultSystemPrompt, cfg.Prompt.SystemPrompt)
	assert.Len(t, cfg.Prompt.Words, core.MinPromptWords)
	assert.Equal(t, "English", cfg.I18n.DefaultLanguage)
	assert.Equal(t, 250, cfg.Limits.MaxFieldLength)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10000, cfg.Session.MaxEntries)
}

func TestLoadFailsFastWithoutAPIKey(t *testing.T) {
	isolate(t)

	_, err := Load()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Problems, "OPENAI_API_KEY is required")
}

func TestLoadCanvasFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "canvas.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[prompt_canvas]
prompt_system = "You are a careful diagnostician."
prompt_words = ["Patient: ", "Pregnant: "]
`), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROMPT_CANVAS_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "You are a careful diagnostician.", cfg.Prompt.SystemPrompt)
	assert.Equal(t, []string{"Patient: ", "Pregnant: "}, cfg.Prompt.Words)
}

func TestLoadCanvasWithoutSystemPromptOrWords(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "canvas.toml")
	require.NoError(t, os.WriteFile(path, []byte("[prompt_canvas]\n"), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROMPT_CANVAS_PATH", path)

	_, err := Load()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Problems, "system prompt is required")
	assert.Contains(t, cerr.Problems, "prompt words are required")
}

func TestLoadMissingCanvasFile(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROMPT_CANVAS_PATH", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Error(t, cerr.Unwrap())
}

func TestLoadReadsEnvFile(t *testing.T) {
	isolate(t)
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_MODEL")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENAI_API_KEY=sk-from-file\nOPENAI_API_MODEL=o3-mini\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() {
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("OPENAI_API_MODEL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "o3-mini", cfg.OpenAI.Model)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Config{
		OpenAI: OpenAIConfig{APIKey: "sk", Temperature: 3, MaxTokens: 0},
		Prompt: PromptConfig{Strategy: "freestyle", SystemPrompt: "s", Words: []string{"a"}},
		Limits: LimitsConfig{MaxFieldLength: 0},
	}
	err := cfg.Validate()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 4)
}

func TestStructuredOutputRequiresNewClient(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STRUCTURED_OUTPUT", "true")

	_, err := Load()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []string{"STRUCTURED_OUTPUT=true requires USE_NEW_AI_CLIENT=true"}, cerr.Problems)

	t.Setenv("USE_NEW_AI_CLIENT", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Prompt.StructuredOutput)
	assert.True(t, cfg.OpenAI.UseNewClient)
}
