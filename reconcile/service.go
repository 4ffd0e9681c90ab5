// Package reconcile keeps the ledger of checkouts whose payment was
// authorized without a fulfillment order, and lets an operator void or
// resolve them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/printshop/checkout"
	"goflare.io/printshop/gateway"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
)

const (
	DefaultListLimit = 100
	maxListLimit     = 1000
)

var (
	ErrNotFound      = errors.New("reconciliation not found")
	ErrNotOpen       = errors.New("reconciliation is not open")
	ErrInvalidStatus = errors.New("invalid reconciliation status")
)

var (
	_ checkout.PartialFailureReporter = (*Service)(nil)
	_ NoticeProcessor                 = (*Service)(nil)
)

// Transactor runs fn inside a database transaction.
type Transactor interface {
	ExecuteTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type Service struct {
	repo      Repository
	tm        Transactor
	publisher Publisher
	voider    gateway.PaymentVoider
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, tm Transactor, publisher Publisher, voider gateway.PaymentVoider, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		tm:        tm,
		publisher: publisher,
		voider:    voider,
		logger:    logger,
		now:       time.Now,
	}
}

// ReportPartialFailure records the failure and announces it. Both are
// attempted; their errors are joined.
func (s *Service) ReportPartialFailure(ctx context.Context, failure checkout.PartialFailure) error {
	occurredAt := failure.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	rec := &models.Reconciliation{
		CheckoutID:       failure.CheckoutID,
		SessionID:        failure.SessionID,
		PaymentReference: failure.PaymentReference,
		AmountMinorUnits: failure.AmountMinorUnits,
		Currency:         failure.Currency,
		Reason:           failure.Reason,
		Status:           enum.ReconciliationStatusOpen,
		CreatedAt:        occurredAt,
	}

	var errs []error
	if err := s.repo.Create(ctx, nil, rec); err != nil {
		errs = append(errs, err)
	}
	if err := s.publisher.Publish(ctx, NewNotice(rec)); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to report partial failure of checkout %s: %w", failure.CheckoutID, err)
	}

	s.logger.Info("Partial failure recorded",
		zap.Int64("reconciliation_id", rec.ID),
		zap.String("checkout_id", rec.CheckoutID),
		zap.String("payment_reference", rec.PaymentReference))
	return nil
}

// ProcessNotice records a notice that was published without a ledger row,
// which happens when the insert failed at report time. Create is an upsert
// on checkout id, so redelivery is harmless.
func (s *Service) ProcessNotice(ctx context.Context, notice Notice) error {
	if notice.ReconciliationID != 0 {
		return nil
	}

	createdAt := notice.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	rec := &models.Reconciliation{
		CheckoutID:       notice.CheckoutID,
		SessionID:        notice.SessionID,
		PaymentReference: notice.PaymentReference,
		AmountMinorUnits: notice.AmountMinorUnits,
		Currency:         notice.Currency,
		Reason:           notice.Reason,
		Status:           enum.ReconciliationStatusOpen,
		CreatedAt:        createdAt,
	}
	if err := s.repo.Create(ctx, nil, rec); err != nil {
		return fmt.Errorf("failed to backfill reconciliation for checkout %s: %w", notice.CheckoutID, err)
	}

	s.logger.Info("Reconciliation backfilled from notice",
		zap.Int64("reconciliation_id", rec.ID),
		zap.String("checkout_id", rec.CheckoutID))
	return nil
}

func (s *Service) List(ctx context.Context, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	if status == "" {
		status = enum.ReconciliationStatusOpen
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.List(ctx, nil, status, limit)
}

// Void cancels the payment authorization of an open record and marks it voided.
func (s *Service) Void(ctx context.Context, id int64) (*models.Reconciliation, error) {
	return s.transition(ctx, id, enum.ReconciliationStatusVoided, func(rec *models.Reconciliation) error {
		return s.voider.Void(ctx, rec.PaymentReference)
	})
}

// Resolve marks an open record as handled outside the system.
func (s *Service) Resolve(ctx context.Context, id int64) (*models.Reconciliation, error) {
	return s.transition(ctx, id, enum.ReconciliationStatusResolved, nil)
}

func (s *Service) transition(ctx context.Context, id int64, to enum.ReconciliationStatus, action func(*models.Reconciliation) error) (*models.Reconciliation, error) {
	var result *models.Reconciliation

	err := s.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		rec, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !rec.IsOpen() {
			return fmt.Errorf("%w: %d is %s", ErrNotOpen, id, rec.Status)
		}

		if action != nil {
			if err = action(rec); err != nil {
				return err
			}
		}

		updatedAt := s.now()
		if err = s.repo.UpdateStatus(ctx, tx, id, to, updatedAt); err != nil {
			return err
		}
		rec.Status = to
		rec.UpdatedAt = updatedAt
		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reconciliation updated",
		zap.Int64("reconciliation_id", id),
		zap.String("status", string(to)),
		zap.String("payment_reference", result.PaymentReference))
	return result, nil
}
