package app

import (
	"context"
	"time"

	paymentsvc "paycore/internal/services/payment"

	"go.uber.org/zap"
)

// RunSweeper cancels timed-out payments every interval until ctx is done.
func RunSweeper(ctx context.Context, svc paymentsvc.Service, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		logger.Info("timeout sweeper disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cancelled, err := svc.SweepTimeouts(ctx)
			if err != nil {
				logger.Error("timeout sweep failed", zap.Error(err))
				continue
			}
			if len(cancelled) > 0 {
				logger.Info("timeout sweep cancelled payments", zap.Int("count", len(cancelled)))
			}
		}
	}
}
