// Package engine applies and reverses ledger credits exactly once per
// external transaction id. All balance mutation happens here, inside a single
// database transaction holding the relevant row locks.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/logging"
)

// ApplyResult and CancelResult are typed outcomes: expected idempotency cases
// never cross the engine boundary as errors.
type ApplyResult string

const (
	ResultApplied        ApplyResult = "applied"
	ResultAlreadyApplied ApplyResult = "already_applied"
	// ResultDeferred is reserved for engines whose settlement is
	// asynchronous. The built-in engine settles synchronously and never
	// returns it, but the orchestrator honors it with an ACCEPTED ack.
	ResultDeferred ApplyResult = "deferred"
)

type CancelResult string

const (
	ResultCancelled        CancelResult = "cancelled"
	ResultAlreadyCancelled CancelResult = "already_cancelled"
	ResultNotFound         CancelResult = "not_found"
	ResultCancelDeferred   CancelResult = "deferred"
)

type accountRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, externalID string) (*domain.LedgerEntry, error)
	MarkCancelled(ctx context.Context, tx *sql.Tx, externalID string, cancelledAt time.Time) error
}

type Engine struct {
	db       *sql.DB
	accounts accountRepo
	entries  entryRepo
}

func New(db *sql.DB, accounts accountRepo, entries entryRepo) *Engine {
	return &Engine{db: db, accounts: accounts, entries: entries}
}

type ApplyRequest struct {
	Account    *domain.Account
	ExternalID string
	Amount     decimal.Decimal
	ReceivedAt time.Time
	Metadata   json.RawMessage
}

// Apply credits req.Amount to the account exactly once per req.ExternalID.
// The account row lock serializes balance updates; the unique index on
// external_id arbitrates duplicate deliveries, and the loser reports
// ResultAlreadyApplied instead of an error. Eligibility is the caller's
// responsibility and is checked before any lock is taken.
func (e *Engine) Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("Apply: %w", domain.ErrInvalidAmount)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("Apply: begin tx: %w", err)
	}
	defer tx.Rollback()

	account, err := e.accounts.GetForUpdate(ctx, tx, req.Account.ID)
	if err != nil {
		return "", fmt.Errorf("Apply: lock account: %w", err)
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		ExternalID:    req.ExternalID,
		AccountID:     account.ID,
		Requisite:     req.Account.Requisite,
		Amount:        req.Amount,
		Status:        domain.EntryStatusSuccess,
		Metadata:      req.Metadata,
		InitializedAt: req.ReceivedAt,
		CompletedAt:   &now,
	}

	if err := e.entries.Create(ctx, tx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			// A committed entry already carries this external id.
			// The balance was bumped by whoever inserted it.
			return ResultAlreadyApplied, nil
		}
		return "", fmt.Errorf("Apply: create entry: %w", err)
	}

	if err := e.accounts.UpdateBalance(ctx, tx, account.ID, account.Balance.Add(req.Amount)); err != nil {
		return "", fmt.Errorf("Apply: update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("Apply: commit: %w", err)
	}

	logging.FromContext(ctx).Info("credit applied",
		"external_id", req.ExternalID,
		"account_id", account.ID,
		"amount", req.Amount.StringFixed(2),
	)

	return ResultApplied, nil
}

// Cancel reverses a previously applied credit exactly once. The entry row
// lock is taken first; an apply that has not committed yet is invisible here,
// so a racing cancel reports ResultNotFound and the network retries.
func (e *Engine) Cancel(ctx context.Context, externalID string) (CancelResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("Cancel: begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := e.entries.GetForUpdate(ctx, tx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ResultNotFound, nil
		}
		return "", fmt.Errorf("Cancel: lock entry: %w", err)
	}

	if entry.Status == domain.EntryStatusCancelled {
		return ResultAlreadyCancelled, nil
	}

	account, err := e.accounts.GetForUpdate(ctx, tx, entry.AccountID)
	if err != nil {
		return "", fmt.Errorf("Cancel: lock account: %w", err)
	}

	// Credits always precede their reversal, so this guard should be
	// unreachable; surface it loudly rather than go negative.
	newBalance := account.Balance.Sub(entry.Amount)
	if newBalance.IsNegative() {
		return "", fmt.Errorf("Cancel: account %s: %w", account.ID, domain.ErrBalanceUnderflow)
	}

	now := time.Now().UTC()
	if err := e.entries.MarkCancelled(ctx, tx, externalID, now); err != nil {
		return "", fmt.Errorf("Cancel: mark cancelled: %w", err)
	}
	if err := e.accounts.UpdateBalance(ctx, tx, account.ID, newBalance); err != nil {
		return "", fmt.Errorf("Cancel: update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("Cancel: commit: %w", err)
	}

	logging.FromContext(ctx).Info("credit reversed",
		"external_id", externalID,
		"account_id", account.ID,
		"amount", entry.Amount.StringFixed(2),
	)

	return ResultCancelled, nil
}
