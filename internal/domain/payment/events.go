package payment

// EventKind names a lifecycle notification emitted after a transaction
// outcome is persisted.
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventPaymentCancelled EventKind = "payment_cancelled"
	EventPaymentTimeout   EventKind = "payment_timeout"
	EventRefundSucceeded  EventKind = "refund_succeeded"
	EventRefundFailed     EventKind = "refund_failed"
)

func (k EventKind) String() string { return string(k) }
