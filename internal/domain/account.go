package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusDeleted   AccountStatus = "deleted"
)

// Account is a credit target resolved from a caller-entered requisite
// (phone number, contract number, email). Balance is mutated only by the
// transaction engine while the row is locked.
type Account struct {
	ID         uuid.UUID
	Requisite  string
	HolderName string
	Status     AccountStatus
	Balance    decimal.Decimal
	CreatedAt  time.Time
}
