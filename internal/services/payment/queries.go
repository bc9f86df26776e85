package payment

import (
	"context"
	"time"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"go.uber.org/zap"
)

func (s *service) GetTransaction(ctx context.Context, transactionID string) (*payment.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, s.fail("get_transaction", err)
	}
	return tx, nil
}

func (s *service) GetCustomerTransaction(ctx context.Context, transactionID, customerID string) (*payment.Transaction, error) {
	tx, err := s.rules.ValidateCustomerAccess(ctx, transactionID, customerID)
	if err != nil {
		return nil, s.fail("get_transaction", err)
	}
	return tx, nil
}

// ListCustomerTransactions filters by status unless status is empty.
func (s *service) ListCustomerTransactions(ctx context.Context, customerID string, status payment.Status) ([]*payment.Transaction, error) {
	var (
		txs []*payment.Transaction
		err error
	)
	if status == "" {
		txs, err = s.repo.FindByCustomerID(ctx, customerID)
	} else {
		txs, err = s.repo.FindByCustomerIDAndStatus(ctx, customerID, status)
	}
	if err != nil {
		return nil, s.fail("list_transactions", err)
	}
	return txs, nil
}

func (s *service) ListOrderTransactions(ctx context.Context, orderID string) ([]*payment.Transaction, error) {
	txs, err := s.repo.FindAllByOrderID(ctx, orderID)
	if err != nil {
		return nil, s.fail("list_transactions", err)
	}
	return txs, nil
}

// QueryGatewayStatus asks the gateway for its view of a transaction. It does
// not change the stored transaction.
func (s *service) QueryGatewayStatus(ctx context.Context, transactionID string) (gateway.Result, error) {
	defer s.observe(opQueryStatus, time.Now())

	tx, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return gateway.Result{}, s.fail(opQueryStatus, err)
	}
	strategy, err := s.registry.Strategy(tx.Method())
	if err != nil {
		return gateway.Result{}, s.fail(opQueryStatus, err)
	}
	return s.dispatch(ctx, opQueryStatus, func(ctx context.Context) gateway.Result {
		return strategy.QueryStatus(ctx, tx.GatewayTransactionID())
	}), nil
}

func (s *service) AvailableMethods(ctx context.Context) []MethodAvailability {
	methods := s.registry.Methods()
	out := make([]MethodAvailability, 0, len(methods))
	for _, m := range methods {
		out = append(out, MethodAvailability{Method: m, Available: s.registry.IsStrategyAvailable(ctx, m)})
	}
	return out
}

func (s *service) SweepTimeouts(ctx context.Context) ([]*payment.Transaction, error) {
	defer s.observe(opSweepTimeouts, time.Now())

	cancelled, err := s.rules.CancelTimeoutTransactions(ctx)
	for _, tx := range cancelled {
		s.notify(ctx, payment.EventPaymentTimeout, tx, tx.CancelReason())
	}
	if len(cancelled) > 0 {
		s.logger.Info("timeout sweep finished", zap.Int("cancelled", len(cancelled)))
	}
	if err != nil {
		return cancelled, s.fail(opSweepTimeouts, err)
	}
	return cancelled, nil
}
