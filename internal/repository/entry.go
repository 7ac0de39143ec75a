package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
)

const entryColumns = `id, external_id, account_id, requisite, amount, status,
	message, metadata, initialized_at, completed_at, cancelled_at`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new ledger entry inside tx. The unique index on
// external_id is the arbiter for concurrent duplicate deliveries: a
// uniqueness conflict comes back as domain.ErrDuplicateEntry and the caller
// reinterprets it as already-applied.
func (r *EntryRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, external_id, account_id, requisite, amount, status,
			message, metadata, initialized_at, completed_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.ExternalID, entry.AccountID, entry.Requisite,
		entry.Amount, entry.Status, entry.Message, entry.Metadata,
		entry.InitializedAt, entry.CompletedAt, entry.CancelledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateEntry)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *EntryRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE external_id = $1`, externalID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByExternalID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByExternalID: %w", err)
	}
	return e, nil
}

// GetForUpdate locks the entry row for the duration of tx. Only committed
// entries are visible, so a cancel racing an in-flight apply observes no row.
func (r *EntryRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, externalID string) (*domain.LedgerEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE external_id = $1 FOR UPDATE`, externalID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return e, nil
}

func (r *EntryRepository) MarkCancelled(ctx context.Context, tx *sql.Tx, externalID string, cancelledAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ledger_entries SET status = $1, cancelled_at = $2 WHERE external_id = $3`,
		domain.EntryStatusCancelled, cancelledAt, externalID,
	)
	if err != nil {
		return fmt.Errorf("MarkCancelled: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkCancelled: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkCancelled: %w", domain.ErrNotFound)
	}
	return nil
}

// ListCompletedBetween returns entries whose completion timestamp falls in
// [from, to], or [from, +inf) when to is nil. Never-completed entries are
// excluded by the NOT NULL filter.
func (r *EntryRepository) ListCompletedBetween(ctx context.Context, from time.Time, to *time.Time) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE completed_at IS NOT NULL AND completed_at >= $1`
	args := []any{from}
	if to != nil {
		query += ` AND completed_at <= $2`
		args = append(args, *to)
	}
	query += ` ORDER BY completed_at, external_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListCompletedBetween: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCompletedBetween: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCompletedBetween: rows: %w", err)
	}
	return entries, nil
}

func scanEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var metadata *[]byte

	err := s.Scan(
		&e.ID, &e.ExternalID, &e.AccountID, &e.Requisite,
		&e.Amount, &e.Status, &e.Message, &metadata,
		&e.InitializedAt, &e.CompletedAt, &e.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata != nil {
		e.Metadata = *metadata
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
