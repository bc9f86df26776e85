package rules

import "time"

// Default configuration values
const (
	DefaultMaxTransactionAmount = "100000"
	DefaultDailyLimit           = "500000"
	DefaultMaxRetryCount        = 3
	DefaultPaymentTimeout       = 30 * time.Minute
)

// Default card refund fee: 1% of the refund, clamped to [10, 100].
const (
	DefaultCardFeeRate = "0.01"
	DefaultCardFeeMin  = "10"
	DefaultCardFeeMax  = "100"
)

// TimeoutCancelReason is recorded on transactions cancelled by the sweep.
const TimeoutCancelReason = "timeout"
