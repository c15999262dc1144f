package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Sumatoshi-tech/proscan/pkg/observability"
)

func TestHTTPMiddleware_SpanAndRED(t *testing.T) {
	t.Parallel()

	exporter, tp := newTestTracerProvider(t)
	mp, reader := newTestMeterProvider()

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		if hr.URL.Path == "/boom" {
			rw.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = rw.Write([]byte("ok"))
	})

	mw := observability.HTTPMiddleware(tp.Tracer("test"), red, handler)

	for _, path := range []string{"/healthz", "/boom"} {
		mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /healthz", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, "GET /boom", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), counterValue(t, rm, "proscan.http.requests.total",
		attribute.String("route", "/healthz"), attribute.Int("status", http.StatusOK)))
	assert.Equal(t, int64(1), counterValue(t, rm, "proscan.http.requests.total",
		attribute.String("route", "/boom"), attribute.Int("status", http.StatusInternalServerError)))
}

func TestAdminHandler_Routes(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	metrics := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("# metrics"))
	})

	h := observability.AdminHandler(providers, observability.AdminOptions{Metrics: metrics})

	tests := []struct {
		path string
		want int
	}{
		{path: "/healthz", want: http.StatusOK},
		{path: "/readyz", want: http.StatusOK},
		{path: "/metrics", want: http.StatusOK},
		{path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
		assert.Equal(t, tt.want, rec.Code, tt.path)
	}

	bare := observability.AdminHandler(providers, observability.AdminOptions{})
	rec := httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
