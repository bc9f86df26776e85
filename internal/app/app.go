// Package app assembles the payment core from configuration. Both the HTTP
// server and the operator CLI start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/config"
	"paycore/internal/domain/payment"
	"paycore/internal/gateways/sandbox"
	"paycore/internal/gateways/stripegw"
	"paycore/internal/handlers"
	"paycore/internal/repositories"
	"paycore/internal/repositories/cache"
	"paycore/internal/services/gateway"
	"paycore/internal/services/notification"
	paymentsvc "paycore/internal/services/payment"
	"paycore/internal/services/retry"
	"paycore/internal/services/rules"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Gateway providers.
const (
	ProviderSandbox = "sandbox"
	ProviderStripe  = "stripe"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	Cache    *cache.CacheService
	Gateway  gateway.Gateway
	Payments paymentsvc.Service
}

// NewLogger returns a JSON production logger in production and a console
// development logger otherwise.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// RulesConfig converts the environment rule settings.
func RulesConfig(rc config.RulesConfig) (rules.Config, error) {
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return rules.Config{}, fmt.Errorf("invalid rules timezone %q: %w", rc.Timezone, err)
	}
	return rules.Config{
		MaxTransactionAmount: rc.MaxTransactionAmount,
		DailyLimit:           rc.DailyLimit,
		MaxRetryCount:        rc.MaxRetryCount,
		PaymentTimeout:       rc.PaymentTimeout,
		RefundFees: map[payment.Method]rules.FeeSchedule{
			payment.MethodCreditCard: {
				Rate: rc.CardFeeRate,
				Min:  rc.CardFeeMin,
				Max:  rc.CardFeeMax,
			},
		},
		Location: loc,
	}, nil
}

// NewGateway builds the configured gateway and the registry over it. Stripe
// only offers card payments.
func NewGateway(cfg config.GatewayConfig, logger *zap.Logger) (gateway.Gateway, *gateway.Registry, error) {
	switch cfg.Provider {
	case ProviderSandbox:
		gw := sandbox.New(sandbox.WithLatency(cfg.SandboxLatency), sandbox.WithLogger(logger))
		return gw, gateway.NewRegistry(gateway.NewCreditCardStrategy(gw), gateway.NewBankTransferStrategy(gw)), nil
	case ProviderStripe:
		if cfg.StripeSecretKey == "" {
			return nil, nil, errors.New("STRIPE_SECRET_KEY is required for the stripe gateway")
		}
		gw := stripegw.New(cfg.StripeSecretKey, logger)
		return gw, gateway.NewRegistry(gateway.NewCreditCardStrategy(gw)), nil
	default:
		return nil, nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

// New connects the stores and builds the payment service. Redis is optional:
// when it is disabled transactions are read from postgres directly and
// notifications are only logged.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.IsProduction() && cfg.FingerprintKey == "" {
		return nil, errors.New("CARD_FINGERPRINT_KEY is required in production")
	}

	rulesCfg, err := RulesConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	gw, registry, err := NewGateway(cfg.Gateway, logger)
	if err != nil {
		return nil, err
	}

	db, err := repositories.InitDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, DB: db, Gateway: gw}

	var (
		repo      payment.Repository = repositories.NewTransactionRepository(db, []byte(cfg.FingerprintKey))
		publisher notification.Publisher
	)
	if cfg.Redis.Enabled {
		a.Redis = cache.NewRedisClient(cfg.Redis)
		a.Cache = cache.NewCacheService(a.Redis, cfg.Redis.CacheTTL)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.Cache.HealthCheck(ctx); err != nil {
			logger.Warn("redis unreachable at startup, continuing without warm cache", zap.Error(err))
		}
		cancel()

		repo = cache.NewCachedRepository(repo, a.Cache, logger)
		publisher = a.Redis
	}

	rulesSvc := rules.NewService(repo, rulesCfg, logger)
	a.Payments = paymentsvc.NewService(paymentsvc.Dependencies{
		Repository: repo,
		Registry:   registry,
		Rules:      rulesSvc,
		Retry:      retry.NewPolicy(registry, rulesSvc, logger),
		Notifier:   notification.NewService(publisher, cfg.Redis.NotificationChannel, logger),
		Logger:     logger,
	}, paymentsvc.Config{
		GatewayTimeout: cfg.Gateway.Timeout,
		Currency:       cfg.Gateway.Currency,
	})
	return a, nil
}

// HealthChecks probes postgres, redis when enabled, and the gateway.
func (a *App) HealthChecks() map[string]handlers.HealthCheckFunc {
	checks := map[string]handlers.HealthCheckFunc{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"gateway": func(ctx context.Context) error {
			if !a.Gateway.IsGatewayHealthy(ctx) {
				return errors.New("gateway reports unhealthy")
			}
			return nil
		},
	}
	if a.Cache != nil {
		checks["redis"] = a.Cache.HealthCheck
	}
	return checks
}

// Close releases redis and the database pool.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("failed to close redis connection", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := repositories.Close(a.DB); err != nil {
			a.Logger.Warn("failed to close database connection", zap.Error(err))
		}
	}
}

// Migrate creates or updates the payment tables.
func Migrate(a *App) error {
	if err := repositories.Migrate(a.DB); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
