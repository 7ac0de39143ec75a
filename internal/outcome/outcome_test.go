package outcome_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmtechlabs/umai-payment-receiver/internal/outcome"
)

func TestSuccess(t *testing.T) {
	assert.True(t, outcome.OK().Success())
	assert.True(t, outcome.Accepted().Success())
	assert.False(t, outcome.NotFound("x").Success())
	assert.False(t, outcome.Forbidden("x").Success())
	assert.False(t, outcome.Internal("x").Success())
	assert.False(t, outcome.NotImplemented().Success())
}

func TestMessageCarriedThrough(t *testing.T) {
	oc := outcome.Forbidden("account is suspended")
	assert.Equal(t, outcome.CodeForbidden, oc.Code)
	assert.Equal(t, "account is suspended", oc.Message)
}
