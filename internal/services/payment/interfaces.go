package payment

import (
	"context"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"
)

// Service defines the payment use cases.
type Service interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	CancelPayment(ctx context.Context, transactionID, reason string) (*payment.Transaction, error)
	ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
	RetryPayment(ctx context.Context, req RetryRequest) (*PaymentResponse, error)

	GetTransaction(ctx context.Context, transactionID string) (*payment.Transaction, error)
	// GetCustomerTransaction fails with ErrAccessDenied when the transaction
	// belongs to another customer.
	GetCustomerTransaction(ctx context.Context, transactionID, customerID string) (*payment.Transaction, error)
	ListCustomerTransactions(ctx context.Context, customerID string, status payment.Status) ([]*payment.Transaction, error)
	ListOrderTransactions(ctx context.Context, orderID string) ([]*payment.Transaction, error)
	QueryGatewayStatus(ctx context.Context, transactionID string) (gateway.Result, error)
	AvailableMethods(ctx context.Context) []MethodAvailability
	// SweepTimeouts cancels stale PROCESSING payments and notifies each one.
	SweepTimeouts(ctx context.Context) ([]*payment.Transaction, error)
}

// Notifier delivers lifecycle notifications. Delivery failures never affect
// the recorded outcome.
type Notifier interface {
	Notify(ctx context.Context, kind payment.EventKind, tx *payment.Transaction, detail string) error
}

// Registry resolves strategies by payment method. *gateway.Registry
// satisfies it.
type Registry interface {
	Strategy(method payment.Method) (gateway.Strategy, error)
	IsStrategyAvailable(ctx context.Context, method payment.Method) bool
	Methods() []payment.Method
}

// RetryPolicy resubmits failed payments. *retry.Policy satisfies it.
type RetryPolicy interface {
	RetryPayment(ctx context.Context, tx *payment.Transaction, req gateway.Request) (gateway.Result, error)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, payment.EventKind, *payment.Transaction, string) error {
	return nil
}
