package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
)

type ProcessRequest struct {
	ExternalID string
	Requisite  string
	Amount     decimal.Decimal
	ReceivedAt time.Time
	Metadata   json.RawMessage
}

type ValidateResult struct {
	Outcome outcome.Outcome
	// Label identifies the resolved payer, typically the account holder
	// name shown back to the customer at the terminal.
	Label string
}

type EntityResult struct {
	Outcome outcome.Outcome
	Entry   *domain.LedgerEntry
}

type ListResult struct {
	Outcome outcome.Outcome
	Entries []domain.LedgerEntry
}

// Handler is the operation set a transport adapter binds to. Deployments
// that support only part of the protocol embed Unimplemented and override
// what they serve.
type Handler interface {
	Validate(ctx context.Context, requisite string, amount *decimal.Decimal) ValidateResult
	Process(ctx context.Context, req ProcessRequest) EntityResult
	Get(ctx context.Context, externalID string) EntityResult
	Cancel(ctx context.Context, externalID string) EntityResult
	List(ctx context.Context, from time.Time, to *time.Time) ListResult
}

// Unimplemented answers NOT_IMPLEMENTED for every operation.
type Unimplemented struct{}

var _ Handler = Unimplemented{}

func (Unimplemented) Validate(context.Context, string, *decimal.Decimal) ValidateResult {
	return ValidateResult{Outcome: outcome.NotImplemented()}
}

func (Unimplemented) Process(context.Context, ProcessRequest) EntityResult {
	return EntityResult{Outcome: outcome.NotImplemented()}
}

func (Unimplemented) Get(context.Context, string) EntityResult {
	return EntityResult{Outcome: outcome.NotImplemented()}
}

func (Unimplemented) Cancel(context.Context, string) EntityResult {
	return EntityResult{Outcome: outcome.NotImplemented()}
}

func (Unimplemented) List(context.Context, time.Time, *time.Time) ListResult {
	return ListResult{Outcome: outcome.NotImplemented()}
}
