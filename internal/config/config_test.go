package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GATEWAY_PROVIDER", "")
	t.Setenv("DAILY_LIMIT", "")

	cfg := Load()

	assert.Equal(t, "sandbox", cfg.Gateway.Provider)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 3, cfg.Rules.MaxRetryCount)
	assert.True(t, cfg.Rules.DailyLimit.Equal(decimal.NewFromInt(500000)))
	assert.True(t, cfg.Rules.CardFeeRate.Equal(decimal.RequireFromString("0.01")))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("MAX_TRANSACTION_AMOUNT", "250.50")
	t.Setenv("MAX_RETRY_COUNT", "5")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("ENV", "production")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.True(t, cfg.Rules.MaxTransactionAmount.Equal(decimal.RequireFromString("250.50")))
	assert.Equal(t, 5, cfg.Rules.MaxRetryCount)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsProduction())
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	t.Setenv("X_DECIMAL", "lots")
	t.Setenv("X_INT", "many")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, time.Minute, GetDurationEnv("X_DURATION", time.Minute))
	assert.True(t, GetDecimalEnv("X_DECIMAL", decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)))
	assert.Equal(t, 9, GetIntEnv("X_INT", 9))
	assert.True(t, GetBoolEnv("X_BOOL", true))
}
