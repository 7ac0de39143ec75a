package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/engine"
	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
	"github.com/bmtechlabs/umai-payment-receiver/internal/repository"
	"github.com/bmtechlabs/umai-payment-receiver/internal/service"
	"github.com/bmtechlabs/umai-payment-receiver/internal/testutil"
)

func setupService(t *testing.T, db *sql.DB) *service.Service {
	t.Helper()
	accounts := repository.NewAccountRepository(db)
	entries := repository.NewEntryRepository(db)
	return service.NewService(accounts, entries, engine.New(db, accounts, entries), nil)
}

func processRequest(externalID, requisite, amount string) service.ProcessRequest {
	return service.ProcessRequest{
		ExternalID: externalID,
		Requisite:  requisite,
		Amount:     decimal.RequireFromString(amount),
		ReceivedAt: time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "0.00")
	testutil.SeedAccount(t, db, "77007654321", "Dana K.", domain.AccountStatusSuspended, "0.00")
	testutil.SeedAccount(t, db, "77009999999", "Erlan B.", domain.AccountStatusDeleted, "0.00")

	res := svc.Validate(ctx, "77001234567", nil)
	assert.Equal(t, outcome.CodeOK, res.Outcome.Code)
	assert.Equal(t, "Askar T.", res.Label)

	res = svc.Validate(ctx, "77007654321", nil)
	assert.Equal(t, outcome.CodeForbidden, res.Outcome.Code)
	assert.NotEmpty(t, res.Outcome.Message)

	res = svc.Validate(ctx, "77009999999", nil)
	assert.Equal(t, outcome.CodeForbidden, res.Outcome.Code)
	assert.NotEmpty(t, res.Outcome.Message)

	res = svc.Validate(ctx, "70000000000", nil)
	assert.Equal(t, outcome.CodeNotFound, res.Outcome.Code)
}

// Process, repeat Process, Cancel, repeat Cancel: the full lifecycle of one
// external id, with the balance checked at every step.
func TestProcessCancelLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "0.00")

	res := svc.Process(ctx, processRequest("t1", "77001234567", "45.95"))
	require.Equal(t, outcome.CodeOK, res.Outcome.Code)
	require.NotNil(t, res.Entry)
	assert.Equal(t, domain.EntryStatusSuccess, res.Entry.Status)
	assert.True(t, res.Entry.Amount.Equal(decimal.RequireFromString("45.95")))
	assert.True(t, testutil.GetBalance(t, db, acct.ID).Equal(decimal.RequireFromString("45.95")))

	got := svc.Get(ctx, "t1")
	require.Equal(t, outcome.CodeOK, got.Outcome.Code)
	require.NotNil(t, got.Entry)
	assert.Equal(t, res.Entry.ID, got.Entry.ID)
	assert.Equal(t, domain.EntryStatusSuccess, got.Entry.Status)
	require.NotNil(t, got.Entry.SettledAt())

	replay := svc.Process(ctx, processRequest("t1", "77001234567", "45.95"))
	require.Equal(t, outcome.CodeOK, replay.Outcome.Code)
	assert.True(t, testutil.GetBalance(t, db, acct.ID).Equal(decimal.RequireFromString("45.95")),
		"replay must not double-credit")
	assert.Equal(t, 1, testutil.CountEntries(t, db, "t1"))

	cancelled := svc.Cancel(ctx, "t1")
	require.Equal(t, outcome.CodeOK, cancelled.Outcome.Code)
	require.NotNil(t, cancelled.Entry)
	assert.Equal(t, domain.EntryStatusCancelled, cancelled.Entry.Status)
	assert.True(t, testutil.GetBalance(t, db, acct.ID).IsZero())

	again := svc.Cancel(ctx, "t1")
	require.Equal(t, outcome.CodeOK, again.Outcome.Code)
	require.NotNil(t, again.Entry)
	assert.Equal(t, domain.EntryStatusCancelled, again.Entry.Status)
	assert.True(t, testutil.GetBalance(t, db, acct.ID).IsZero(), "repeat cancel is a no-op")
}

func TestProcess_SuspendedAccountNeverReachesEngine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "77007654321", "Dana K.", domain.AccountStatusSuspended, "0.00")

	res := svc.Process(ctx, processRequest("t-susp", "77007654321", "100.00"))
	assert.Equal(t, outcome.CodeForbidden, res.Outcome.Code)
	assert.NotEmpty(t, res.Outcome.Message)

	assert.Equal(t, 0, testutil.CountEntries(t, db, "t-susp"), "no entry written")
	assert.True(t, testutil.GetBalance(t, db, acct.ID).IsZero())
}

// Identity is re-checked on every delivery attempt: a replay for an account
// suspended after the first delivery is rejected even though the credit is
// already applied.
func TestProcess_ReplayRevalidatesIdentity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "0.00")

	res := svc.Process(ctx, processRequest("t-revalidate", "77001234567", "50.00"))
	require.Equal(t, outcome.CodeOK, res.Outcome.Code)

	_, err := db.Exec(`UPDATE accounts SET status = 'suspended' WHERE id = $1`, acct.ID)
	require.NoError(t, err)

	replay := svc.Process(ctx, processRequest("t-revalidate", "77001234567", "50.00"))
	assert.Equal(t, outcome.CodeForbidden, replay.Outcome.Code)
	assert.True(t, testutil.GetBalance(t, db, acct.ID).Equal(decimal.RequireFromString("50.00")))
}

func TestCancel_NeverApplied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "25.00")

	res := svc.Cancel(ctx, "t-unknown")
	assert.Equal(t, outcome.CodeNotFound, res.Outcome.Code)
	assert.Nil(t, res.Entry)
}

func TestGet_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)

	res := svc.Get(context.Background(), "t-unknown")
	assert.Equal(t, outcome.CodeNotFound, res.Outcome.Code)
}

// An entry parked in a non-terminal state by an out-of-band settlement is
// acknowledged with ACCEPTED on replay and carries no settlement timestamp
// on retrieval.
func TestProcess_ParkedEntryIsAccepted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "0.00")

	_, err := db.Exec(
		`INSERT INTO ledger_entries (id, external_id, account_id, requisite, amount, status, initialized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), "t-parked", acct.ID, acct.Requisite,
		decimal.RequireFromString("30.00"), domain.EntryStatusProcessing, time.Now().UTC(),
	)
	require.NoError(t, err)

	res := svc.Process(ctx, processRequest("t-parked", "77001234567", "30.00"))
	assert.Equal(t, outcome.CodeAccepted, res.Outcome.Code)
	assert.Nil(t, res.Entry)

	got := svc.Get(ctx, "t-parked")
	require.Equal(t, outcome.CodeOK, got.Outcome.Code)
	require.NotNil(t, got.Entry)
	assert.False(t, got.Entry.Terminal())
	assert.Nil(t, got.Entry.SettledAt())
}

func TestList_CompletionWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "77001234567", "Askar T.", domain.AccountStatusActive, "0.00")

	before := time.Now().UTC().Add(-time.Minute)

	for _, amount := range []string{"246.91", "370.37", "617.28"} {
		res := svc.Process(ctx, processRequest("t-list-"+amount, "77001234567", amount))
		require.Equal(t, outcome.CodeOK, res.Outcome.Code)
	}

	// A parked entry has no completion timestamp and must never be listed.
	_, err := db.Exec(
		`INSERT INTO ledger_entries (id, external_id, account_id, requisite, amount, status, initialized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), "t-list-parked", acct.ID, acct.Requisite,
		decimal.RequireFromString("1.00"), domain.EntryStatusInitialized, time.Now().UTC(),
	)
	require.NoError(t, err)

	after := time.Now().UTC().Add(time.Minute)

	assert.True(t, testutil.GetBalance(t, db, acct.ID).Equal(decimal.RequireFromString("1234.56")))

	res := svc.List(ctx, before, &after)
	require.Equal(t, outcome.CodeOK, res.Outcome.Code)
	assert.Len(t, res.Entries, 3)

	res = svc.List(ctx, before, nil)
	require.Equal(t, outcome.CodeOK, res.Outcome.Code)
	assert.Len(t, res.Entries, 3, "open-ended window includes everything completed since begin")

	res = svc.List(ctx, after, nil)
	require.Equal(t, outcome.CodeOK, res.Outcome.Code)
	assert.Empty(t, res.Entries)
}
