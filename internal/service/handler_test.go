package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
	"github.com/bmtechlabs/umai-payment-receiver/internal/service"
)

// A deployment that embeds Unimplemented gets a complete, NOT_IMPLEMENTED
// skeleton without touching storage.
func TestUnimplementedAnswersEveryOperation(t *testing.T) {
	var h service.Handler = service.Unimplemented{}
	ctx := context.Background()

	assert.Equal(t, outcome.CodeNotImplemented, h.Validate(ctx, "77001234567", nil).Outcome.Code)
	assert.Equal(t, outcome.CodeNotImplemented, h.Process(ctx, service.ProcessRequest{}).Outcome.Code)
	assert.Equal(t, outcome.CodeNotImplemented, h.Get(ctx, "t1").Outcome.Code)
	assert.Equal(t, outcome.CodeNotImplemented, h.Cancel(ctx, "t1").Outcome.Code)
	assert.Equal(t, outcome.CodeNotImplemented, h.List(ctx, time.Now(), nil).Outcome.Code)
}

type readOnlyHandler struct {
	service.Unimplemented
}

func TestPartialHandlerKeepsUnimplementedDefaults(t *testing.T) {
	var h service.Handler = readOnlyHandler{}

	res := h.Cancel(context.Background(), "t1")
	assert.Equal(t, outcome.CodeNotImplemented, res.Outcome.Code)
}
