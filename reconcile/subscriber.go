package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subscription is the part of *nats.Conn the subscriber needs.
type Subscription interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Subscriber feeds partial failure notices into a worker pool.
type Subscriber struct {
	conn   Subscription
	pool   *WorkerPool
	logger *zap.Logger
}

func NewSubscriber(conn Subscription, pool *WorkerPool, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		pool:   pool,
		logger: logger,
	}
}

// Start subscribes to partial failure notices. Stop the returned
// subscription with Drain before shutting the pool down.
func (s *Subscriber) Start(ctx context.Context) (*nats.Subscription, error) {
	sub, err := s.conn.Subscribe(SubjectPartialFailure, func(msg *nats.Msg) {
		s.handle(ctx, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", SubjectPartialFailure, err)
	}
	return sub, nil
}

func (s *Subscriber) handle(ctx context.Context, msg *nats.Msg) {
	var notice Notice
	if err := json.Unmarshal(msg.Data, &notice); err != nil {
		s.logger.Error("Failed to unmarshal notice", zap.Error(err))
		return
	}
	if notice.CheckoutID == "" || notice.PaymentReference == "" {
		s.logger.Warn("Dropping incomplete notice", zap.String("checkout_id", notice.CheckoutID))
		return
	}

	s.pool.Submit(ctx, notice)
}

// Drain stops delivery and waits until every pending message has been handed
// to the pool, or ctx is done.
func Drain(ctx context.Context, sub *nats.Subscription) error {
	closed := sub.StatusChanged(nats.SubscriptionClosed)

	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain %s: %w", sub.Subject, err)
	}
	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain %s: %w", sub.Subject, ctx.Err())
	}
}
