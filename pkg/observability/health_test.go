package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/proscan/pkg/observability"
)

var errCameraOffline = errors.New("camera offline")

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serve(t *testing.T, h http.Handler, path string) (int, healthResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec.Code, body
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	code, body := serve(t, observability.HealthHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()

	pass := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errCameraOffline }

	tests := []struct {
		name       string
		checks     []observability.NamedCheck
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{name: "no_checks", wantCode: http.StatusOK, wantStatus: "ok"},
		{
			name:       "all_pass",
			checks:     []observability.NamedCheck{{Name: "decoder", Check: pass}, {Name: "source", Check: pass}},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"decoder": "ok", "source": "ok"},
		},
		{
			name:       "one_fails",
			checks:     []observability.NamedCheck{{Name: "decoder", Check: pass}, {Name: "source", Check: fail}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
			wantChecks: map[string]string{"decoder": "ok", "source": "camera offline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := serve(t, observability.ReadyHandler(tt.checks...), "/readyz")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}
