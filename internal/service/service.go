// Package service sequences identity validation, the transaction engine and
// result retrieval into the caller-visible completion protocol: OK with the
// finished entity, ACCEPTED with a poll-later ack, or a typed rejection.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/engine"
	"github.com/bmtechlabs/umai-payment-receiver/internal/events"
	"github.com/bmtechlabs/umai-payment-receiver/internal/logging"
	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
)

type accountResolver interface {
	GetByRequisite(ctx context.Context, requisite string) (*domain.Account, error)
}

type entryReader interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.LedgerEntry, error)
	ListCompletedBetween(ctx context.Context, from time.Time, to *time.Time) ([]domain.LedgerEntry, error)
}

type transactionEngine interface {
	Apply(ctx context.Context, req engine.ApplyRequest) (engine.ApplyResult, error)
	Cancel(ctx context.Context, externalID string) (engine.CancelResult, error)
}

type settlementPublisher interface {
	Publish(ctx context.Context, event events.Settlement) error
}

type Service struct {
	Unimplemented

	accounts  accountResolver
	entries   entryReader
	engine    transactionEngine
	publisher settlementPublisher
}

// NewService wires the orchestrator. publisher may be nil, which disables
// settlement event publishing.
func NewService(accounts accountResolver, entries entryReader, eng transactionEngine, publisher settlementPublisher) *Service {
	return &Service{
		accounts:  accounts,
		entries:   entries,
		engine:    eng,
		publisher: publisher,
	}
}

var _ Handler = (*Service)(nil)

// Validate resolves a requisite to an eligible account without mutating any
// state. The amount hint is accepted for protocol compatibility; eligibility
// does not depend on it.
func (s *Service) Validate(ctx context.Context, requisite string, _ *decimal.Decimal) ValidateResult {
	account, oc := s.resolveEligible(ctx, requisite)
	if oc.Code != outcome.CodeOK {
		return ValidateResult{Outcome: oc}
	}
	return ValidateResult{Outcome: outcome.OK(), Label: account.HolderName}
}

// Process runs validate then apply. Validation happens on every delivery
// attempt, including replays of an already-applied external id, so a payer
// that went ineligible after the first delivery is rejected on retry before
// the engine is consulted.
func (s *Service) Process(ctx context.Context, req ProcessRequest) EntityResult {
	account, oc := s.resolveEligible(ctx, req.Requisite)
	if oc.Code != outcome.CodeOK {
		return EntityResult{Outcome: oc}
	}

	result, err := s.engine.Apply(ctx, engine.ApplyRequest{
		Account:    account,
		ExternalID: req.ExternalID,
		Amount:     req.Amount,
		ReceivedAt: req.ReceivedAt,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return EntityResult{Outcome: outcome.Internal(err.Error())}
	}

	if result == engine.ResultDeferred {
		return EntityResult{Outcome: outcome.Accepted()}
	}

	entry, err := s.entries.GetByExternalID(ctx, req.ExternalID)
	if err != nil {
		return EntityResult{Outcome: outcome.Internal(err.Error())}
	}

	if !entry.Terminal() {
		// Parked by an out-of-band settlement; the caller polls Get.
		return EntityResult{Outcome: outcome.Accepted()}
	}

	if result == engine.ResultApplied {
		s.publish(ctx, entry)
	}

	return EntityResult{Outcome: outcome.OK(), Entry: entry}
}

// Get is pure retrieval of the latest committed state.
func (s *Service) Get(ctx context.Context, externalID string) EntityResult {
	entry, err := s.entries.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return EntityResult{Outcome: outcome.NotFound("transaction not found")}
		}
		return EntityResult{Outcome: outcome.Internal(err.Error())}
	}
	return EntityResult{Outcome: outcome.OK(), Entry: entry}
}

// Cancel reverses a previously applied credit. Repeat cancels are reported
// as success; cancelling an id that was never applied is NOT_FOUND.
func (s *Service) Cancel(ctx context.Context, externalID string) EntityResult {
	result, err := s.engine.Cancel(ctx, externalID)
	if err != nil {
		return EntityResult{Outcome: outcome.Internal(err.Error())}
	}

	switch result {
	case engine.ResultNotFound:
		return EntityResult{Outcome: outcome.NotFound("transaction not found")}
	case engine.ResultCancelDeferred:
		return EntityResult{Outcome: outcome.Accepted()}
	}

	entry, err := s.entries.GetByExternalID(ctx, externalID)
	if err != nil {
		return EntityResult{Outcome: outcome.Internal(err.Error())}
	}

	if result == engine.ResultCancelled {
		s.publish(ctx, entry)
	}

	return EntityResult{Outcome: outcome.OK(), Entry: entry}
}

// List returns every entry whose completion timestamp falls within
// [from, to], or [from, +inf) when to is nil.
func (s *Service) List(ctx context.Context, from time.Time, to *time.Time) ListResult {
	entries, err := s.entries.ListCompletedBetween(ctx, from, to)
	if err != nil {
		return ListResult{Outcome: outcome.Internal(err.Error())}
	}
	return ListResult{Outcome: outcome.OK(), Entries: entries}
}

func (s *Service) resolveEligible(ctx context.Context, requisite string) (*domain.Account, outcome.Outcome) {
	account, err := s.accounts.GetByRequisite(ctx, requisite)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, outcome.NotFound("account not found")
		}
		return nil, outcome.Internal(err.Error())
	}

	switch account.Status {
	case domain.AccountStatusActive:
		return account, outcome.OK()
	case domain.AccountStatusSuspended:
		return nil, outcome.Forbidden("account is suspended")
	case domain.AccountStatusDeleted:
		return nil, outcome.Forbidden("account is deleted")
	default:
		return nil, outcome.Forbidden("account is not eligible")
	}
}

// publish is best effort: a broker outage must not fail a settled payment.
func (s *Service) publish(ctx context.Context, entry *domain.LedgerEntry) {
	if s.publisher == nil {
		return
	}

	settledAt := entry.SettledAt()
	if settledAt == nil {
		return
	}

	event := events.Settlement{
		ExternalID: entry.ExternalID,
		Requisite:  entry.Requisite,
		Amount:     entry.Amount.StringFixed(2),
		Status:     string(entry.Status),
		SettledAt:  *settledAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Error("settlement event publish failed",
			"external_id", entry.ExternalID,
			"error", err,
		)
	}
}
