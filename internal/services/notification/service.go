// Package notification publishes payment lifecycle events. Events are
// logged and, when a redis client is configured, published as JSON on a
// pub/sub channel.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paycore/internal/domain/payment"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event is the published form of a lifecycle notification. It never
// carries card credentials.
type Event struct {
	Kind                 payment.EventKind   `json:"kind"`
	TransactionID        string              `json:"transaction_id"`
	ParentTransactionID  string              `json:"parent_transaction_id,omitempty"`
	MerchantReference    string              `json:"merchant_reference"`
	OrderID              string              `json:"order_id"`
	CustomerID           string              `json:"customer_id"`
	Amount               decimal.Decimal     `json:"amount"`
	Method               payment.Method      `json:"method"`
	Status               payment.Status      `json:"status"`
	GatewayTransactionID string              `json:"gateway_transaction_id,omitempty"`
	FailureCode          payment.FailureCode `json:"failure_code,omitempty"`
	Detail               string              `json:"detail,omitempty"`
	OccurredAt           time.Time           `json:"occurred_at"`
}

// NewEvent builds the event for tx.
func NewEvent(kind payment.EventKind, tx *payment.Transaction, detail string, at time.Time) Event {
	return Event{
		Kind:                 kind,
		TransactionID:        tx.ID(),
		ParentTransactionID:  tx.ParentID(),
		MerchantReference:    tx.MerchantReference(),
		OrderID:              tx.OrderID(),
		CustomerID:           tx.CustomerID(),
		Amount:               tx.Amount(),
		Method:               tx.Method(),
		Status:               tx.Status(),
		GatewayTransactionID: tx.GatewayTransactionID(),
		FailureCode:          tx.FailureCode(),
		Detail:               detail,
		OccurredAt:           at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Service delivers notifications. A nil publisher only logs.
type Service struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new notification service.
func NewService(publisher Publisher, channel string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		publisher: publisher,
		channel:   channel,
		logger:    logger.Named("notification"),
		now:       time.Now,
	}
}

// Notify logs the event and publishes it.
func (s *Service) Notify(ctx context.Context, kind payment.EventKind, tx *payment.Transaction, detail string) error {
	event := NewEvent(kind, tx, detail, s.now())
	s.logger.Info("payment event",
		zap.String("kind", string(event.Kind)),
		zap.String("transaction_id", event.TransactionID),
		zap.String("customer_id", event.CustomerID),
		zap.String("status", string(event.Status)),
		zap.String("amount", event.Amount.StringFixed(2)),
	)

	if s.publisher == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.publisher.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	return nil
}
