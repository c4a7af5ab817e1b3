package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "LOG_LEVEL", "LOG_FORMAT", "LOG_DEVELOPMENT",
		"LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GROQ_API_KEY", "GROQ_MODEL",
		"PLAN_LANGUAGE", "API_AUTH_SECRET", "API_BASE_URL", "TELEGRAM_BOT_TOKEN",
		"TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS", "SESSION_TTL_HOURS", "WEB_USERNAME",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Port)
		assert.Equal(t, "data/meals.db", cfg.DatabasePath)
		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, "Italian", cfg.PlanLanguage)
		assert.Equal(t, 72, cfg.SessionTTLHours)
		assert.Equal(t, "admin", cfg.WebUsername)
		assert.Empty(t, cfg.TelegramAllowedUserIDs)
	})

	t.Run("Overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "8081")
		t.Setenv("LLM_PROVIDER", "GROQ")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("API_BASE_URL", "http://api.test/")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		t.Setenv("SESSION_TTL_HOURS", "5")
		t.Setenv("WEB_USERNAME", "cook")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "8081", cfg.Port)
		assert.Equal(t, ProviderGroq, cfg.LLMProvider)
		assert.Equal(t, "http://api.test", cfg.APIBaseURL)
		assert.Equal(t, []int64{12, 34}, cfg.TelegramAllowedUserIDs)
		assert.Equal(t, 5, cfg.SessionTTLHours)
		assert.Equal(t, "cook", cfg.WebUsername)
		assert.True(t, cfg.IsAllowedUser(34))
		assert.False(t, cfg.IsAllowedUser(99))
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "openai")

		_, err := NewFromEnv()
		require.Error(t, err)
	})

	t.Run("InvalidUserIDs", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")

		_, err := NewFromEnv()
		require.Error(t, err)
	})

	t.Run("InvalidSessionTTL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SESSION_TTL_HOURS", "-1")

		_, err := NewFromEnv()
		require.Error(t, err)
	})
}

func TestValidateServer(t *testing.T) {
	t.Run("MissingGeminiAPIKey", func(t *testing.T) {
		cfg := &Config{LLMProvider: ProviderGemini}
		err := cfg.ValidateServer()
		require.Error(t, err)
		assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	})

	t.Run("MissingGroqAPIKey", func(t *testing.T) {
		cfg := &Config{LLMProvider: ProviderGroq, GeminiAPIKey: "unused"}
		err := cfg.ValidateServer()
		require.Error(t, err)
		assert.Equal(t, "GROQ_API_KEY environment variable not set", err.Error())
	})

	t.Run("Success", func(t *testing.T) {
		cfg := &Config{LLMProvider: ProviderGemini, GeminiAPIKey: "gemini_key"}
		assert.NoError(t, cfg.ValidateServer())
	})
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateBot()
	require.Error(t, err)
	assert.Equal(t, "TELEGRAM_BOT_TOKEN environment variable not set", err.Error())

	cfg.TelegramBotToken = "token"
	err = cfg.ValidateBot()
	require.Error(t, err)
	assert.Equal(t, "TELEGRAM_WEBHOOK_URL environment variable not set", err.Error())

	cfg.TelegramWebhookURL = "https://bot.test/webhook"
	err = cfg.ValidateBot()
	require.Error(t, err)
	assert.Equal(t, "API_BASE_URL environment variable not set", err.Error())

	cfg.APIBaseURL = "http://api.test"
	assert.NoError(t, cfg.ValidateBot())
}
