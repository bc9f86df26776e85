package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paycore/internal/domain/payment"
	domainerr "paycore/internal/errors"
	"paycore/internal/services/gateway"
	"paycore/internal/services/rules"

	"go.uber.org/zap"
)

// Dependencies are the collaborators of the payment service. Notifier,
// Metrics and Logger are optional.
type Dependencies struct {
	Repository payment.Repository
	Registry   Registry
	Rules      rules.Service
	Retry      RetryPolicy
	Notifier   Notifier
	Metrics    MetricsCollector
	Logger     *zap.Logger
}

type Config struct {
	// GatewayTimeout bounds every gateway call.
	GatewayTimeout time.Duration
	Currency       string
}

type service struct {
	repo     payment.Repository
	registry Registry
	rules    rules.Service
	retry    RetryPolicy
	notifier Notifier
	metrics  MetricsCollector
	logger   *zap.Logger
	config   Config
	now      func() time.Time
}

// NewService creates a new payment service
func NewService(deps Dependencies, config Config) Service {
	if deps.Repository == nil {
		panic("repository is required")
	}
	if deps.Registry == nil {
		panic("registry is required")
	}
	if deps.Rules == nil {
		panic("rules service is required")
	}
	if deps.Retry == nil {
		panic("retry policy is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	if config.GatewayTimeout <= 0 {
		config.GatewayTimeout = DefaultGatewayTimeout
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}

	return &service{
		repo:     deps.Repository,
		registry: deps.Registry,
		rules:    deps.Rules,
		retry:    deps.Retry,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger.Named("payment"),
		config:   config,
		now:      time.Now,
	}
}

func (s *service) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	defer s.observe(opProcessPayment, time.Now())

	strategy, err := s.registry.Strategy(req.Method)
	if err != nil {
		return nil, s.fail(opProcessPayment, err)
	}

	params := payment.NewTransactionParams{
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Method:      req.Method,
		Description: req.Description,
		Now:         s.now(),
	}
	if req.Card != nil {
		card, err := s.buildCard(req.Card)
		if err != nil {
			return nil, s.fail(opProcessPayment, err)
		}
		params.Card = &card
	}
	if req.BankAccount != nil {
		acct, err := buildBankAccount(req.BankAccount)
		if err != nil {
			return nil, s.fail(opProcessPayment, err)
		}
		params.BankAccount = &acct
	}

	tx, err := payment.NewTransaction(params)
	if err != nil {
		return nil, s.fail(opProcessPayment, err)
	}
	if err := s.rules.ValidatePaymentRequest(ctx, tx.OrderID(), tx.CustomerID(), tx.Amount(), tx.Method(), params.Card); err != nil {
		return nil, s.fail(opProcessPayment, err)
	}

	// Built before the first save: credentials are not persisted.
	gwReq := gateway.NewRequest(tx, s.config.Currency)

	if tx, err = s.save(ctx, tx); err != nil {
		return nil, s.fail(opProcessPayment, err)
	}
	if err := tx.StartProcessing(); err != nil {
		return nil, s.fail(opProcessPayment, err)
	}
	if tx, err = s.save(ctx, tx); err != nil {
		return nil, s.fail(opProcessPayment, err)
	}

	log := s.logger.With(
		zap.String("transaction_id", tx.ID()),
		zap.String("merchant_reference", tx.MerchantReference()),
		zap.String("order_id", tx.OrderID()),
		zap.String("method", string(tx.Method())),
	)
	log.Info("dispatching payment", zap.String("amount", tx.Amount().StringFixed(2)))

	result := s.dispatch(ctx, opProcessPayment, func(ctx context.Context) gateway.Result {
		return strategy.ProcessPayment(ctx, gwReq)
	})
	return s.recordOutcome(ctx, opProcessPayment, tx, result)
}

// recordOutcome applies a gateway result to a PROCESSING payment, persists
// it and notifies.
func (s *service) recordOutcome(ctx context.Context, op string, tx *payment.Transaction, result gateway.Result) (*PaymentResponse, error) {
	log := s.logger.With(zap.String("transaction_id", tx.ID()), zap.String("operation", op))

	var err error
	if result.Success {
		err = tx.MarkAsSuccess(result.GatewayTransactionID, result.ResponseMessage)
	} else {
		err = tx.MarkAsFailedWithReference(result.GatewayTransactionID, result.FailureReason, result.ResponseMessage)
	}
	if err != nil {
		return nil, s.fail(op, err)
	}

	saved, err := s.save(ctx, tx)
	if err != nil {
		// The transaction stays PROCESSING in storage; the timeout sweep
		// resolves it.
		log.Error("failed to persist payment outcome",
			zap.Bool("gateway_success", result.Success),
			zap.String("gateway_transaction_id", result.GatewayTransactionID),
			zap.Error(err),
		)
		return nil, s.fail(op, domainerr.Internal(fmt.Errorf("record outcome of %s: %w", tx.ID(), err)))
	}

	if saved.Status() == payment.StatusSuccess {
		log.Info("payment succeeded", zap.String("gateway_transaction_id", saved.GatewayTransactionID()))
		s.metrics.RecordOperationResult(op, "success")
		s.metrics.RecordPaymentVolume(saved.Method(), saved.Amount())
		s.notify(ctx, payment.EventPaymentSucceeded, saved, result.ResponseMessage)
	} else {
		log.Warn("payment failed",
			zap.String("failure_code", string(saved.FailureCode())),
			zap.Bool("retryable", saved.FailureCode().Retryable()),
		)
		s.metrics.RecordOperationResult(op, "failed")
		s.metrics.RecordError(op, string(saved.FailureCode()))
		s.notify(ctx, payment.EventPaymentFailed, saved, result.ResponseMessage)
	}
	return newPaymentResponse(saved), nil
}

func (s *service) CancelPayment(ctx context.Context, transactionID, reason string) (*payment.Transaction, error) {
	defer s.observe(opCancelPayment, time.Now())

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled"
	}

	var cancelled *payment.Transaction
	err := s.repo.WithinTx(ctx, func(repo payment.Repository) error {
		tx, err := repo.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := tx.Cancel(reason); err != nil {
			return err
		}
		cancelled, err = repo.Save(ctx, tx)
		return err
	})
	if err != nil {
		return nil, s.fail(opCancelPayment, err)
	}

	s.logger.Info("payment cancelled", zap.String("transaction_id", cancelled.ID()), zap.String("reason", reason))
	s.metrics.RecordOperationResult(opCancelPayment, "success")
	s.notify(ctx, payment.EventPaymentCancelled, cancelled, reason)
	return cancelled, nil
}

// dispatch runs a gateway call under the gateway timeout. A panic in the
// call is reported as a SYSTEM_ERROR result.
func (s *service) dispatch(ctx context.Context, op string, call func(context.Context) gateway.Result) (result gateway.Result) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gateway call panicked", zap.String("operation", op), zap.Any("panic", r))
			result = gateway.Failed(payment.FailureSystemError, "payment gateway fault")
		}
	}()

	return call(ctx)
}

// notify never fails the caller.
func (s *service) notify(ctx context.Context, kind payment.EventKind, tx *payment.Transaction, detail string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notifier panicked", zap.String("event", string(kind)), zap.Any("panic", r))
		}
	}()
	if err := s.notifier.Notify(ctx, kind, tx, detail); err != nil {
		s.logger.Warn("failed to send notification",
			zap.String("event", string(kind)),
			zap.String("transaction_id", tx.ID()),
			zap.Error(err),
		)
	}
}

// save persists tx in its own unit of work.
func (s *service) save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	var saved *payment.Transaction
	err := s.repo.WithinTx(ctx, func(repo payment.Repository) error {
		var err error
		saved, err = repo.Save(ctx, tx)
		return err
	})
	return saved, err
}

// fail normalizes err into a DomainError and records it.
func (s *service) fail(op string, err error) error {
	de := domainerr.Normalize(err)
	if de.Kind == domainerr.KindInternal {
		s.logger.Error("payment operation failed", zap.String("operation", op), zap.Error(err))
	}
	s.metrics.RecordError(op, de.Code)
	return de
}

func (s *service) observe(op string, start time.Time) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
}

func (s *service) buildCard(in *CardInput) (payment.Card, error) {
	expiry, err := payment.NewExpiry(in.ExpiryYear, in.ExpiryMonth)
	if err != nil {
		return payment.Card{}, err
	}
	return payment.NewCardAt(in.Number, in.Holder, expiry, in.CVV, s.now())
}

func buildBankAccount(in *BankAccountInput) (payment.BankAccount, error) {
	return payment.NewBankAccount(in.AccountNumber, in.BankCode, in.Holder)
}
