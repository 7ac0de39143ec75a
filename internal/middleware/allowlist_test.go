package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmtechlabs/umai-payment-receiver/internal/middleware"
)

func allowlistRequest(t *testing.T, cidrs []string, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	mw, err := middleware.Allowlist(cidrs)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/t1", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func TestAllowlist(t *testing.T) {
	tests := []struct {
		name       string
		cidrs      []string
		remoteAddr string
		wantStatus int
	}{
		{"empty list allows all", nil, "203.0.113.7:4411", http.StatusNoContent},
		{"cidr match", []string{"203.0.113.0/24"}, "203.0.113.7:4411", http.StatusNoContent},
		{"cidr miss", []string{"203.0.113.0/24"}, "198.51.100.9:4411", http.StatusForbidden},
		{"bare ip match", []string{"198.51.100.9"}, "198.51.100.9:4411", http.StatusNoContent},
		{"bare ip miss", []string{"198.51.100.9"}, "198.51.100.10:4411", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := allowlistRequest(t, tt.cidrs, tt.remoteAddr)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAllowlist_RejectsGarbageConfig(t *testing.T) {
	_, err := middleware.Allowlist([]string{"not-an-address"})
	require.Error(t, err)
}
