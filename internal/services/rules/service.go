// Package rules enforces the cross-transaction business rules that guard
// money movement: duplicate payments, amount limits, retry ceilings, refund
// fees and payment timeouts.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/domain/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the domain rules service.
type Service interface {
	// ValidatePaymentRequest checks a new payment against the duplicate-order
	// guard, the per-transaction and daily limits and card expiry.
	ValidatePaymentRequest(ctx context.Context, orderID, customerID string, amount decimal.Decimal, method payment.Method, card *payment.Card) error
	// CanRetryPayment reports whether the order is still under the failed
	// attempt ceiling.
	CanRetryPayment(ctx context.Context, orderID string) (bool, error)
	CalculateRefundFee(tx *payment.Transaction, refundAmount decimal.Decimal) decimal.Decimal
	IsPaymentTimeout(tx *payment.Transaction) bool
	// CancelTimeoutTransactions cancels PROCESSING payments older than the
	// timeout window and returns the ones it cancelled.
	CancelTimeoutTransactions(ctx context.Context) ([]*payment.Transaction, error)
	ValidateCustomerAccess(ctx context.Context, transactionID, customerID string) (*payment.Transaction, error)
}

// FeeSchedule is a percentage fee clamped to [Min, Max].
type FeeSchedule struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

// Config holds the rule thresholds. Zero values take the package defaults.
type Config struct {
	MaxTransactionAmount decimal.Decimal
	DailyLimit           decimal.Decimal
	MaxRetryCount        int
	PaymentTimeout       time.Duration
	// RefundFees maps a method to its fee schedule. Methods without an
	// entry are refunded free of charge.
	RefundFees map[payment.Method]FeeSchedule
	// Location defines the calendar day used by the daily limit.
	Location *time.Location
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxTransactionAmount: decimal.RequireFromString(DefaultMaxTransactionAmount),
		DailyLimit:           decimal.RequireFromString(DefaultDailyLimit),
		MaxRetryCount:        DefaultMaxRetryCount,
		PaymentTimeout:       DefaultPaymentTimeout,
		RefundFees: map[payment.Method]FeeSchedule{
			payment.MethodCreditCard: {
				Rate: decimal.RequireFromString(DefaultCardFeeRate),
				Min:  decimal.RequireFromString(DefaultCardFeeMin),
				Max:  decimal.RequireFromString(DefaultCardFeeMax),
			},
		},
		Location: time.Local,
	}
}

// Option configures the service.
type Option func(*service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo   payment.Repository
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a rules service. Unset config fields take defaults.
func NewService(repo payment.Repository, config Config, logger *zap.Logger, opts ...Option) Service {
	if repo == nil {
		panic("repo is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultConfig()
	if !config.MaxTransactionAmount.IsPositive() {
		config.MaxTransactionAmount = defaults.MaxTransactionAmount
	}
	if !config.DailyLimit.IsPositive() {
		config.DailyLimit = defaults.DailyLimit
	}
	if config.MaxRetryCount <= 0 {
		config.MaxRetryCount = defaults.MaxRetryCount
	}
	if config.PaymentTimeout <= 0 {
		config.PaymentTimeout = defaults.PaymentTimeout
	}
	if config.RefundFees == nil {
		config.RefundFees = defaults.RefundFees
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}

	s := &service{
		repo:   repo,
		config: config,
		logger: logger.Named("rules"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ValidatePaymentRequest(
	ctx context.Context,
	orderID, customerID string,
	amount decimal.Decimal,
	method payment.Method,
	card *payment.Card,
) error {
	paid, err := s.repo.HasSuccessfulPaymentForOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to check order payments: %w", err)
	}
	if paid {
		return payment.ErrDuplicatePayment.WithMessage("order %s has already been paid", orderID)
	}

	if amount.GreaterThan(s.config.MaxTransactionAmount) {
		return payment.ErrLimitExceeded.WithMessage("amount %s exceeds the per-transaction limit of %s",
			amount.StringFixed(2), s.config.MaxTransactionAmount.StringFixed(2))
	}

	spent, err := s.dailyTotal(ctx, customerID)
	if err != nil {
		return err
	}
	if spent.Add(amount).GreaterThan(s.config.DailyLimit) {
		return payment.ErrLimitExceeded.WithMessage("daily limit of %s would be exceeded (already %s today)",
			s.config.DailyLimit.StringFixed(2), spent.StringFixed(2))
	}

	if card != nil && card.IsExpiredAt(s.now()) {
		return payment.ErrExpiredCard
	}
	if method.IsCardBased() && card == nil {
		return payment.ErrInvalidCard.WithMessage("card is required for card payments")
	}
	return nil
}

// dailyTotal sums the customer's successful payments created since the
// start of the current calendar day. Refunds are not netted out.
func (s *service) dailyTotal(ctx context.Context, customerID string) (decimal.Decimal, error) {
	settled, err := s.repo.FindByCustomerIDAndStatus(ctx, customerID, payment.StatusSuccess)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load customer payments: %w", err)
	}
	now := s.now().In(s.config.Location)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.config.Location)

	total := decimal.Zero
	for _, tx := range settled {
		if tx.Kind() != payment.KindPayment || tx.CreatedAt().Before(startOfDay) {
			continue
		}
		total = total.Add(tx.Amount())
	}
	return total, nil
}

func (s *service) CanRetryPayment(ctx context.Context, orderID string) (bool, error) {
	txs, err := s.repo.FindAllByOrderID(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to load order payments: %w", err)
	}
	return FailedAttempts(txs) < s.config.MaxRetryCount, nil
}

// FailedAttempts counts failed gateway attempts across an order's payments.
// A payment that was retried carries its earlier failures in RetryCount.
func FailedAttempts(txs []*payment.Transaction) int {
	var n int
	for _, tx := range txs {
		if tx.Kind() != payment.KindPayment {
			continue
		}
		n += tx.RetryCount()
		if tx.Status() == payment.StatusFailed {
			n++
		}
	}
	return n
}

func (s *service) CalculateRefundFee(tx *payment.Transaction, refundAmount decimal.Decimal) decimal.Decimal {
	schedule, ok := s.config.RefundFees[tx.Method()]
	if !ok || !refundAmount.IsPositive() {
		return decimal.Zero
	}
	fee := refundAmount.Mul(schedule.Rate).Round(2)
	if fee.LessThan(schedule.Min) {
		fee = schedule.Min
	}
	if schedule.Max.IsPositive() && fee.GreaterThan(schedule.Max) {
		fee = schedule.Max
	}
	// never charge more than is being returned
	if fee.GreaterThan(refundAmount) {
		fee = refundAmount
	}
	return fee
}

func (s *service) IsPaymentTimeout(tx *payment.Transaction) bool {
	if tx.Status() != payment.StatusProcessing {
		return false
	}
	return s.now().Sub(tx.CreatedAt()) > s.config.PaymentTimeout
}

func (s *service) CancelTimeoutTransactions(ctx context.Context) ([]*payment.Transaction, error) {
	cutoff := s.now().Add(-s.config.PaymentTimeout)
	candidates, err := s.repo.FindTimeoutTransactions(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find timed out transactions: %w", err)
	}

	var (
		cancelled []*payment.Transaction
		errs      []error
	)
	for _, candidate := range candidates {
		var saved *payment.Transaction
		err := s.repo.WithinTx(ctx, func(repo payment.Repository) error {
			// reload: the outcome may have been recorded since the query
			tx, err := repo.FindByID(ctx, candidate.ID())
			if err != nil {
				return err
			}
			if !s.IsPaymentTimeout(tx) {
				return nil
			}
			if err := tx.Cancel(TimeoutCancelReason); err != nil {
				return err
			}
			saved, err = repo.Save(ctx, tx)
			return err
		})
		switch {
		case err == nil:
			if saved != nil {
				cancelled = append(cancelled, saved)
			}
		case errors.Is(err, payment.ErrConcurrentModification):
			s.logger.Info("skipping timed out transaction modified concurrently",
				zap.String("transaction_id", candidate.ID()))
		default:
			s.logger.Error("failed to cancel timed out transaction",
				zap.String("transaction_id", candidate.ID()), zap.Error(err))
			errs = append(errs, fmt.Errorf("cancel %s: %w", candidate.ID(), err))
		}
	}

	if len(cancelled) > 0 {
		s.logger.Info("cancelled timed out transactions", zap.Int("count", len(cancelled)))
	}
	return cancelled, errors.Join(errs...)
}

func (s *service) ValidateCustomerAccess(ctx context.Context, transactionID, customerID string) (*payment.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.CustomerID() != customerID {
		return nil, payment.ErrAccessDenied
	}
	return tx, nil
}
