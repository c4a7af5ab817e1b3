package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported values for LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	Port         string
	DatabasePath string

	LogLevel       string
	LogFormat      string
	LogDevelopment bool

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	PlanLanguage string

	// Optional HS256 secret guarding the mutating API routes. When set, the
	// web calendar asks for WebUsername with this secret as password.
	APIAuthSecret string
	WebUsername   string
	// Where the Telegram bot reaches the API.
	APIBaseURL string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	SessionTTLHours        int
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		DatabasePath:   getEnv("DATABASE_PATH", "data/meals.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogDevelopment: os.Getenv("LOG_DEVELOPMENT") == "true",
		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqModel:      getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		PlanLanguage:   getEnv("PLAN_LANGUAGE", "Italian"),
		APIAuthSecret:  os.Getenv("API_AUTH_SECRET"),
		WebUsername:    getEnv("WEB_USERNAME", "admin"),
		APIBaseURL:     strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		SessionTTLHours:    72,
	}

	if cfg.LLMProvider != ProviderGemini && cfg.LLMProvider != ProviderGroq {
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderGroq, cfg.LLMProvider)
	}

	if raw := os.Getenv("SESSION_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("SESSION_TTL_HOURS must be a positive integer, got %q", raw)
		}
		cfg.SessionTTLHours = hours
	}

	ids, err := parseUserIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.TelegramAllowedUserIDs = ids

	return cfg, nil
}

// ValidateServer checks the settings the API server cannot start without.
func (c *Config) ValidateServer() error {
	switch c.LLMProvider {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	}
	return nil
}

// ValidateBot checks the settings the Telegram bot cannot start without.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL environment variable not set")
	}
	return nil
}

// IsAllowedUser reports whether a Telegram user may talk to the bot.
func (c *Config) IsAllowedUser(id int64) bool {
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
