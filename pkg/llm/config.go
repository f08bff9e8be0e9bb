package llm

import (
	"time"

	"moneyradar/pkg/config"
)

// Config holds completion provider configuration
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	APIURL     string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

// LoadConfig loads provider configuration from LLM_* env vars.
func LoadConfig() Config {
	return Config{
		Provider:   config.GetEnv("LLM_PROVIDER", "groq"),
		Model:      config.GetEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		APIKey:     config.GetEnv("LLM_API_KEY", ""),
		APIURL:     config.GetEnv("LLM_API_URL", ""),
		MaxTokens:  config.GetEnvInt("LLM_MAX_TOKENS", 300),
		Timeout:    time.Duration(config.GetEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: config.GetEnvInt("LLM_MAX_RETRIES", 5),
	}
}
