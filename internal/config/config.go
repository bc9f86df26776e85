package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	JWT      JWTConfig
	Rules    RulesConfig
	// FingerprintKey keys the stored card fingerprint.
	FingerprintKey string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	AllowOrigins    string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Enabled turns on the transaction cache and the notification channel.
	Enabled             bool
	CacheTTL            time.Duration
	NotificationChannel string
}

type GatewayConfig struct {
	// Provider is "sandbox" or "stripe".
	Provider        string
	StripeSecretKey string
	Timeout         time.Duration
	Currency        string
	SandboxLatency  time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type RulesConfig struct {
	MaxTransactionAmount decimal.Decimal
	DailyLimit           decimal.Decimal
	MaxRetryCount        int
	PaymentTimeout       time.Duration
	SweepInterval        time.Duration
	CardFeeRate          decimal.Decimal
	CardFeeMin           decimal.Decimal
	CardFeeMax           decimal.Decimal
	// Timezone is the IANA zone the daily limit window is computed in.
	Timezone string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Env: GetEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            GetEnv("PORT", "8080"),
			ReadTimeout:     GetDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    GetDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
			ShutdownTimeout: GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimit:       GetIntEnv("RATE_LIMIT_PER_MINUTE", 100),
			AllowOrigins:    GetEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "paycore"),
			SSLMode:         GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:                GetEnv("REDIS_HOST", "localhost"),
			Port:                GetEnv("REDIS_PORT", "6379"),
			Password:            GetEnv("REDIS_PASSWORD", ""),
			DB:                  GetIntEnv("REDIS_DB", 0),
			Enabled:             GetBoolEnv("REDIS_ENABLED", true),
			CacheTTL:            GetDurationEnv("REDIS_CACHE_TTL", 10*time.Minute),
			NotificationChannel: GetEnv("NOTIFICATION_CHANNEL", "payments.events"),
		},
		Gateway: GatewayConfig{
			Provider:        GetEnv("GATEWAY_PROVIDER", "sandbox"),
			StripeSecretKey: GetEnv("STRIPE_SECRET_KEY", ""),
			Timeout:         GetDurationEnv("GATEWAY_TIMEOUT", 30*time.Second),
			Currency:        GetEnv("GATEWAY_CURRENCY", "USD"),
			SandboxLatency:  GetDurationEnv("SANDBOX_LATENCY", 0),
		},
		JWT: JWTConfig{
			Secret: GetEnv("JWT_SECRET", ""),
			Issuer: GetEnv("JWT_ISSUER", "paycore"),
		},
		Rules: RulesConfig{
			MaxTransactionAmount: GetDecimalEnv("MAX_TRANSACTION_AMOUNT", decimal.NewFromInt(100000)),
			DailyLimit:           GetDecimalEnv("DAILY_LIMIT", decimal.NewFromInt(500000)),
			MaxRetryCount:        GetIntEnv("MAX_RETRY_COUNT", 3),
			PaymentTimeout:       GetDurationEnv("PAYMENT_TIMEOUT", 30*time.Minute),
			SweepInterval:        GetDurationEnv("SWEEP_INTERVAL", time.Minute),
			CardFeeRate:          GetDecimalEnv("CARD_REFUND_FEE_RATE", decimal.RequireFromString("0.01")),
			CardFeeMin:           GetDecimalEnv("CARD_REFUND_FEE_MIN", decimal.NewFromInt(10)),
			CardFeeMax:           GetDecimalEnv("CARD_REFUND_FEE_MAX", decimal.NewFromInt(100)),
			Timezone:             GetEnv("RULES_TIMEZONE", "Local"),
		},
		FingerprintKey: GetEnv("CARD_FINGERPRINT_KEY", ""),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv accepts Go duration strings such as "30s" or "15m".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
