package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("SUGGESTION_COOLDOWN", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, time.Minute, cfg.SuggestionCooldown)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.NATSEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SUGGESTION_COOLDOWN", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.SuggestionCooldown)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 120, cfg.RateLimitRequests)
}

func TestLLMAPIKey(t *testing.T) {
	cfg := &Config{LLMProvider: "openai", OpenAIAPIKey: "sk-1", GeminiAPIKey: "g-1"}
	assert.Equal(t, "sk-1", cfg.LLMAPIKey())

	cfg.LLMProvider = "gemini"
	assert.Equal(t, "g-1", cfg.LLMAPIKey())

	cfg.LLMProvider = "unknown"
	assert.Empty(t, cfg.LLMAPIKey())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{AuthProvider: "firebase", DatabaseDriver: "memory", SuggestionCooldown: time.Minute}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.AuthProvider = "jwt"
	assert.Error(t, cfg.Validate())
	cfg.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.AuthProvider = "basic"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.DatabaseDriver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.SuggestionCooldown = 0
	assert.Error(t, cfg.Validate())
}
