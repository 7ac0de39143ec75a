package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bmtechlabs/umai-payment-receiver/internal/domain"
	"github.com/bmtechlabs/umai-payment-receiver/internal/logging"
	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
	"github.com/bmtechlabs/umai-payment-receiver/internal/service"
)

type PaymentHandler struct {
	ops service.Handler
}

func NewPaymentHandler(ops service.Handler) *PaymentHandler {
	return &PaymentHandler{ops: ops}
}

type validateRequest struct {
	Requisite string `json:"requisite"`
	Amount    string `json:"amount,omitempty"`
}

func (r validateRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Requisite == "" {
		errs = append(errs, FieldError{Field: "requisite", Message: "required"})
	}
	if r.Amount != "" {
		if _, fe := parseAmount(r.Amount); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

type processRequest struct {
	ID        string          `json:"id"`
	Requisite string          `json:"requisite"`
	Amount    string          `json:"amount"`
	Timestamp string          `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

func (r processRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "required"})
	}
	if r.Requisite == "" {
		errs = append(errs, FieldError{Field: "requisite", Message: "required"})
	}
	if r.Amount == "" {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	} else if _, fe := parseAmount(r.Amount); fe != nil {
		errs = append(errs, *fe)
	}
	if r.Timestamp == "" {
		errs = append(errs, FieldError{Field: "timestamp", Message: "required"})
	} else if _, err := time.Parse(time.RFC3339, r.Timestamp); err != nil {
		errs = append(errs, FieldError{Field: "timestamp", Message: "must be RFC 3339"})
	}
	return errs
}

// parseAmount accepts a positive fixed-point amount with at most two decimal
// places.
func parseAmount(s string) (decimal.Decimal, *FieldError) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &FieldError{Field: "amount", Message: "must be a decimal number"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &FieldError{Field: "amount", Message: "must be greater than 0"}
	}
	if d.Exponent() < -2 {
		return decimal.Zero, &FieldError{Field: "amount", Message: "must have at most 2 decimal places"}
	}
	return d, nil
}

type entryDTO struct {
	ID        string          `json:"id"`
	Requisite string          `json:"requisite"`
	Amount    string          `json:"amount"`
	Status    string          `json:"status"`
	Message   *string         `json:"message,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// toEntryDTO shapes the wire entity. Timestamp is the settlement moment and
// is omitted entirely while the entry is non-terminal, which is the poller's
// signal to keep polling.
func toEntryDTO(e *domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:        e.ExternalID,
		Requisite: e.Requisite,
		Amount:    e.Amount.StringFixed(2),
		Status:    string(e.Status),
		Message:   e.Message,
		Timestamp: e.SettledAt(),
		Metadata:  e.Metadata,
	}
}

type validateDTO struct {
	Requisite string `json:"requisite"`
	Label     string `json:"label"`
}

type ackDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *PaymentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		d, _ := parseAmount(req.Amount)
		amount = &d
	}

	res := h.ops.Validate(r.Context(), req.Requisite, amount)
	if res.Outcome.Code != outcome.CodeOK {
		logging.FromContext(r.Context()).Warn("validate rejected",
			"requisite", req.Requisite,
			"outcome", res.Outcome.Code,
		)
	}
	RespondOutcome(w, res.Outcome, validateDTO{Requisite: req.Requisite, Label: res.Label})
}

func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	amount, _ := parseAmount(req.Amount)
	ts, _ := time.Parse(time.RFC3339, req.Timestamp)

	res := h.ops.Process(r.Context(), service.ProcessRequest{
		ExternalID: req.ID,
		Requisite:  req.Requisite,
		Amount:     amount,
		ReceivedAt: ts.UTC(),
		Metadata:   req.Metadata,
	})
	if !res.Outcome.Success() {
		log.Warn("process rejected",
			"external_id", req.ID,
			"outcome", res.Outcome.Code,
			"message", res.Outcome.Message,
		)
	}
	respondEntity(w, res, req.ID)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res := h.ops.Get(r.Context(), id)
	respondEntity(w, res, id)
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res := h.ops.Cancel(r.Context(), id)
	if !res.Outcome.Success() {
		logging.FromContext(r.Context()).Warn("cancel rejected",
			"external_id", id,
			"outcome", res.Outcome.Code,
			"message", res.Outcome.Message,
		)
	}
	respondEntity(w, res, id)
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	fromParam := r.URL.Query().Get("from")
	if fromParam == "" {
		RespondValidationError(w, []FieldError{{Field: "from", Message: "required"}})
		return
	}
	from, err := time.Parse(time.RFC3339, fromParam)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "from", Message: "must be RFC 3339"}})
		return
	}

	var to *time.Time
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		t, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "to", Message: "must be RFC 3339"}})
			return
		}
		to = &t
	}

	res := h.ops.List(r.Context(), from, to)
	if res.Outcome.Code != outcome.CodeOK {
		RespondOutcome(w, res.Outcome, nil)
		return
	}

	dtos := make([]entryDTO, 0, len(res.Entries))
	for i := range res.Entries {
		dtos = append(dtos, toEntryDTO(&res.Entries[i]))
	}
	RespondOutcome(w, res.Outcome, dtos)
}

func respondEntity(w http.ResponseWriter, res service.EntityResult, externalID string) {
	if res.Entry != nil {
		RespondOutcome(w, res.Outcome, toEntryDTO(res.Entry))
		return
	}
	if res.Outcome.Code == outcome.CodeAccepted {
		RespondOutcome(w, res.Outcome, ackDTO{ID: externalID, Status: "accepted"})
		return
	}
	RespondOutcome(w, res.Outcome, nil)
}
