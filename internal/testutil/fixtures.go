package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/repository"
)

func SeedAccount(t *testing.T, db *sql.DB, requisite, holderName string, status domain.AccountStatus, balance string) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:         uuid.New(),
		Requisite:  requisite,
		HolderName: holderName,
		Status:     status,
		Balance:    decimal.RequireFromString(balance),
		CreatedAt:  time.Now().UTC(),
	}

	if err := repository.NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", requisite, err)
	}
	return a
}

func GetBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %s: %v", accountID, err)
	}
	return balance
}

func CountEntries(t *testing.T, db *sql.DB, externalID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE external_id = $1`, externalID).Scan(&count)
	if err != nil {
		t.Fatalf("count entries for %s: %v", externalID, err)
	}
	return count
}
