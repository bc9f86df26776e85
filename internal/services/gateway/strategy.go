// Package gateway dispatches payments to an external processor through one
// Strategy per payment method. Strategies never return raw errors: every
// outcome, including validation and transport failures, is a Result.
package gateway

import (
	"context"
	"time"

	"paycore/internal/domain/payment"
)

// Strategy processes payments of a single method.
type Strategy interface {
	SupportedMethod() payment.Method
	ProcessPayment(ctx context.Context, req Request) Result
	ProcessRefund(ctx context.Context, req RefundRequest) Result
	QueryStatus(ctx context.Context, gatewayTransactionID string) Result
	IsAvailable(ctx context.Context) bool
	// Validate returns nil when req can be dispatched, or the failure
	// Result that would be reported otherwise.
	Validate(req Request) *Result
}

// Option configures a strategy.
type Option func(*dispatcher)

// WithClock overrides the clock used for card expiry checks.
func WithClock(now func() time.Time) Option {
	return func(d *dispatcher) { d.now = now }
}

// dispatcher holds what both strategies share: the gateway, the clock and
// result normalization.
type dispatcher struct {
	gateway Gateway
	now     func() time.Time
}

func newDispatcher(gw Gateway, opts []Option) dispatcher {
	if gw == nil {
		panic("gateway is required")
	}
	d := dispatcher{gateway: gw, now: time.Now}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func (d dispatcher) IsAvailable(ctx context.Context) bool {
	return d.gateway.IsGatewayHealthy(ctx)
}

func (d dispatcher) charge(ctx context.Context, req Request, call func(context.Context, Request) (Result, error)) Result {
	if !d.gateway.IsGatewayHealthy(ctx) {
		return Failed(payment.FailureNetworkError, ErrGatewayUnavailable.Message)
	}
	res, err := call(ctx, req)
	return normalize(res, err)
}

func (d dispatcher) ProcessRefund(ctx context.Context, req RefundRequest) Result {
	if !payment.ValidAmount(req.Amount) {
		return Failed(payment.FailureInvalidAmount, "refund amount must be positive")
	}
	if req.GatewayTransactionID == "" {
		return Failed(payment.FailureInvalidTransactionState, "original payment has no gateway transaction")
	}
	if !d.gateway.IsGatewayHealthy(ctx) {
		return Failed(payment.FailureNetworkError, ErrGatewayUnavailable.Message)
	}
	res, err := d.gateway.ProcessRefund(ctx, req)
	return normalize(res, err)
}

func (d dispatcher) QueryStatus(ctx context.Context, gatewayTransactionID string) Result {
	if gatewayTransactionID == "" {
		return Failed(payment.FailureInvalidTransactionState, "transaction has no gateway reference")
	}
	res, err := d.gateway.QueryPaymentStatus(ctx, gatewayTransactionID)
	return normalize(res, err)
}

// normalize makes a gateway answer obey the Result contract.
func normalize(res Result, err error) Result {
	if err != nil {
		return FromError(err)
	}
	if res.ProcessedAt.IsZero() {
		res.ProcessedAt = time.Now().UTC()
	}
	if res.Success {
		res.Status = StatusApproved
		res.FailureReason = ""
		res.Retryable = false
		return res
	}
	if !res.FailureReason.Known() {
		res.FailureReason = payment.FailureSystemError
	}
	res.Retryable = res.FailureReason.Retryable()
	if res.Status == "" || res.Status == StatusApproved {
		res.Status = StatusDeclined
		if res.Retryable {
			res.Status = StatusError
		}
	}
	if res.ResponseMessage == "" {
		res.ResponseMessage = res.FailureReason.Description()
	}
	return res
}

func validateCommon(req Request, method payment.Method) *Result {
	if req.Method != method {
		r := Failed(payment.FailureInvalidTransactionState, "request method does not match strategy")
		return &r
	}
	if req.MerchantReference == "" {
		r := Failed(payment.FailureInvalidTransactionState, "merchant reference is required")
		return &r
	}
	if !payment.ValidAmount(req.Amount) {
		r := Failed(payment.FailureInvalidAmount, "amount must be positive with at most 2 decimal places")
		return &r
	}
	return nil
}

// CreditCardStrategy charges cards.
type CreditCardStrategy struct {
	dispatcher
}

func NewCreditCardStrategy(gw Gateway, opts ...Option) *CreditCardStrategy {
	return &CreditCardStrategy{dispatcher: newDispatcher(gw, opts)}
}

func (s *CreditCardStrategy) SupportedMethod() payment.Method { return payment.MethodCreditCard }

// Validate re-checks the card number checksum, expiry and security code.
func (s *CreditCardStrategy) Validate(req Request) *Result {
	if r := validateCommon(req, payment.MethodCreditCard); r != nil {
		return r
	}
	if req.Card == nil {
		r := Failed(payment.FailureInvalidCard, "card is required")
		return &r
	}
	if err := req.Card.Validate(s.now()); err != nil {
		return fromValidation(err, payment.FailureInvalidCard)
	}
	return nil
}

func (s *CreditCardStrategy) ProcessPayment(ctx context.Context, req Request) Result {
	if r := s.Validate(req); r != nil {
		return *r
	}
	return s.charge(ctx, req, s.gateway.ProcessCreditCardPayment)
}

// BankTransferStrategy debits bank accounts.
type BankTransferStrategy struct {
	dispatcher
}

func NewBankTransferStrategy(gw Gateway, opts ...Option) *BankTransferStrategy {
	return &BankTransferStrategy{dispatcher: newDispatcher(gw, opts)}
}

func (s *BankTransferStrategy) SupportedMethod() payment.Method { return payment.MethodBankTransfer }

// Validate checks the account number, bank code and holder.
func (s *BankTransferStrategy) Validate(req Request) *Result {
	if r := validateCommon(req, payment.MethodBankTransfer); r != nil {
		return r
	}
	if req.BankAccount == nil {
		r := Failed(payment.FailureInvalidAccount, "bank account is required")
		return &r
	}
	if err := req.BankAccount.Validate(); err != nil {
		return fromValidation(err, payment.FailureInvalidAccount)
	}
	return nil
}

func (s *BankTransferStrategy) ProcessPayment(ctx context.Context, req Request) Result {
	if r := s.Validate(req); r != nil {
		return *r
	}
	return s.charge(ctx, req, s.gateway.ProcessBankTransfer)
}
