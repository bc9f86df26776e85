package payment

import "time"

// Default configuration values
const (
	DefaultGatewayTimeout = 30 * time.Second
	DefaultCurrency       = "USD"
)

// Operation names used for logs and metrics.
const (
	opProcessPayment = "process_payment"
	opCancelPayment  = "cancel_payment"
	opProcessRefund  = "process_refund"
	opRetryPayment   = "retry_payment"
	opQueryStatus    = "query_status"
	opSweepTimeouts  = "sweep_timeouts"
)
