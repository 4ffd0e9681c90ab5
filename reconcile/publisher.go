package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goflare.io/printshop/models"
)

// SubjectPartialFailure carries one Notice per partially failed checkout.
const SubjectPartialFailure = "checkout.reconcile.partial_failure"

const flushTimeout = 5 * time.Second

// Notice is the message published for compensation processes.
type Notice struct {
	ReconciliationID int64     `json:"reconciliation_id,omitempty"`
	CheckoutID       string    `json:"checkout_id"`
	SessionID        string    `json:"session_id,omitempty"`
	PaymentReference string    `json:"payment_reference"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	Currency         string    `json:"currency"`
	Reason           string    `json:"reason"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewNotice(rec *models.Reconciliation) Notice {
	return Notice{
		ReconciliationID: rec.ID,
		CheckoutID:       rec.CheckoutID,
		SessionID:        rec.SessionID,
		PaymentReference: rec.PaymentReference,
		AmountMinorUnits: rec.AmountMinorUnits,
		Currency:         rec.Currency,
		Reason:           rec.Reason,
		OccurredAt:       rec.CreatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, notice Notice) error
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

type natsPublisher struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(conn Conn, logger *zap.Logger) Publisher {
	return &natsPublisher{
		conn:    conn,
		subject: SubjectPartialFailure,
		logger:  logger,
	}
}

// Publish waits for the server to acknowledge the flush.
func (p *natsPublisher) Publish(ctx context.Context, notice Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	if err = p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("Failed to publish notice", zap.String("checkout_id", notice.CheckoutID), zap.Error(err))
		return fmt.Errorf("failed to publish notice: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err = p.conn.FlushWithContext(ctx); err != nil {
		p.logger.Error("Failed to flush notice", zap.String("checkout_id", notice.CheckoutID), zap.Error(err))
		return fmt.Errorf("failed to flush notice: %w", err)
	}

	p.logger.Info("Partial failure notice published",
		zap.String("subject", p.subject),
		zap.String("checkout_id", notice.CheckoutID),
		zap.String("payment_reference", notice.PaymentReference))
	return nil
}
