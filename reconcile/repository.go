package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/printshop/driver"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
)

var _ Repository = (*repository)(nil)

// Repository methods run inside tx when it is non-nil.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, rec *models.Reconciliation) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Reconciliation, error)
	List(ctx context.Context, tx pgx.Tx, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status enum.ReconciliationStatus, updatedAt time.Time) error
}

type repository struct {
	conn   driver.PostgresPool
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

const columns = `id, checkout_id, session_id, payment_reference, amount_minor_units, currency, reason, status, created_at, updated_at`

func (r *repository) querier(tx pgx.Tx) driver.Querier {
	if tx != nil {
		return tx
	}
	return r.conn
}

func (r *repository) Create(ctx context.Context, tx pgx.Tx, rec *models.Reconciliation) error {
	err := r.querier(tx).QueryRow(ctx, `
		INSERT INTO reconciliations
			(checkout_id, session_id, payment_reference, amount_minor_units, currency, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (checkout_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id`,
		rec.CheckoutID, rec.SessionID, rec.PaymentReference, rec.AmountMinorUnits,
		rec.Currency, rec.Reason, string(rec.Status), rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		r.logger.Error("Failed to create reconciliation", zap.String("checkout_id", rec.CheckoutID), zap.Error(err))
		return fmt.Errorf("failed to create reconciliation: %w", err)
	}
	rec.UpdatedAt = rec.CreatedAt
	return nil
}

func (r *repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Reconciliation, error) {
	query := `SELECT ` + columns + ` FROM reconciliations WHERE id = $1`
	if tx != nil {
		query += ` FOR UPDATE`
	}

	rec, err := scanReconciliation(r.querier(tx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get reconciliation", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get reconciliation: %w", err)
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, tx pgx.Tx, status enum.ReconciliationStatus, limit int) ([]*models.Reconciliation, error) {
	rows, err := r.querier(tx).Query(ctx,
		`SELECT `+columns+` FROM reconciliations WHERE status = $1 ORDER BY created_at LIMIT $2`,
		string(status), limit)
	if err != nil {
		r.logger.Error("Failed to list reconciliations", zap.Error(err))
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	defer rows.Close()

	var out []*models.Reconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status enum.ReconciliationStatus, updatedAt time.Time) error {
	tag, err := r.querier(tx).Exec(ctx,
		`UPDATE reconciliations SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), updatedAt)
	if err != nil {
		r.logger.Error("Failed to update reconciliation status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update reconciliation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reconciliation %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanReconciliation(row pgx.Row) (*models.Reconciliation, error) {
	var rec models.Reconciliation
	var status string
	if err := row.Scan(
		&rec.ID, &rec.CheckoutID, &rec.SessionID, &rec.PaymentReference, &rec.AmountMinorUnits,
		&rec.Currency, &rec.Reason, &status, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = enum.ReconciliationStatus(status)
	return &rec, nil
}
