package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryStatusInitialized EntryStatus = "initialized"
	EntryStatusProcessing  EntryStatus = "processing"
	EntryStatusSuccess     EntryStatus = "success"
	EntryStatusFailure     EntryStatus = "failure"
	EntryStatusCancelled   EntryStatus = "cancelled"
)

// LedgerEntry records one credit applied to an account. ExternalID is the
// network-assigned transaction id and the sole idempotency key: exactly one
// entry ever exists per external id. Entries are never deleted; cancellation
// is a status transition.
type LedgerEntry struct {
	ID            uuid.UUID
	ExternalID    string
	AccountID     uuid.UUID
	Requisite     string
	Amount        decimal.Decimal
	Status        EntryStatus
	Message       *string
	Metadata      json.RawMessage
	InitializedAt time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// Terminal reports whether no further status transition is expected,
// other than success -> cancelled.
func (e *LedgerEntry) Terminal() bool {
	switch e.Status {
	case EntryStatusSuccess, EntryStatusFailure, EntryStatusCancelled:
		return true
	default:
		return false
	}
}

// SettledAt returns the moment the entry reached its current terminal state:
// cancellation time for cancelled entries, completion time otherwise.
// Nil while the entry is still pending.
func (e *LedgerEntry) SettledAt() *time.Time {
	if e.Status == EntryStatusCancelled {
		return e.CancelledAt
	}
	if e.Terminal() {
		return e.CompletedAt
	}
	return nil
}
