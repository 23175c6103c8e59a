package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Default credentials; requests may override per-call via headers.
	KitAPIKey    string
	ClaudeAPIKey string

	ClaudeModel string
	KitBaseURL  string

	// Conversation lifecycle.
	MaxHistory      int
	ConversationTTL time.Duration
	CleanupInterval time.Duration

	UseMockLLM bool // true = no outbound model calls, useful for dev
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getSecondsEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Load reads all env vars and builds the config.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		KitAPIKey:    getEnv("KIT_API_KEY", ""),
		ClaudeAPIKey: getEnv("CLAUDE_API_KEY", ""),

		ClaudeModel: getEnv("CLAUDE_MODEL", ""),
		KitBaseURL:  getEnv("KIT_BASE_URL", ""),

		MaxHistory:      getIntEnv("MAX_HISTORY", 10),
		ConversationTTL: getSecondsEnv("CONVERSATION_TTL_SECONDS", time.Hour),
		CleanupInterval: getSecondsEnv("CLEANUP_INTERVAL_SECONDS", time.Minute),

		UseMockLLM: getBoolEnv("USE_MOCK_LLM", false),
	}
}
