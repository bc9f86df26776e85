package payment

import (
	"time"

	"paycore/internal/domain/payment"

	"github.com/shopspring/decimal"
)

// MetricsCollector receives operational measurements from the service.
type MetricsCollector interface {
	RecordOperationDuration(operation string, d time.Duration)
	RecordOperationResult(operation, result string)
	RecordError(operation, code string)
	RecordPaymentVolume(method payment.Method, amount decimal.Decimal)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration)       {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)                {}
func (n *NoopMetricsCollector) RecordError(string, string)                          {}
func (n *NoopMetricsCollector) RecordPaymentVolume(payment.Method, decimal.Decimal) {}
