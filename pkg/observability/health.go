package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem can serve. It returns nil when ready.
type ReadyCheck func(ctx context.Context) error

// NamedCheck pairs a ReadyCheck with the name reported in the /readyz body.
type NamedCheck struct {
	Name  string
	Check ReadyCheck
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		writeHealthJSON(rw, healthBody{Status: healthStatusOK})
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at /readyz.
// Every check runs. If any fails the handler answers 503 and the body names
// the failing checks; otherwise 200. No checks means ready.
func ReadyHandler(checks ...NamedCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		rw.Header().Set("Content-Type", "application/json")

		body := healthBody{Status: healthStatusOK}

		for _, nc := range checks {
			if body.Checks == nil {
				body.Checks = make(map[string]string, len(checks))
			}

			err := nc.Check(hr.Context())
			if err != nil {
				body.Status = healthStatusUnavailable
				body.Checks[nc.Name] = err.Error()

				continue
			}

			body.Checks[nc.Name] = healthStatusOK
		}

		if body.Status != healthStatusOK {
			rw.WriteHeader(http.StatusServiceUnavailable)
		} else {
			rw.WriteHeader(http.StatusOK)
		}

		writeHealthJSON(rw, body)
	})
}

func writeHealthJSON(w io.Writer, body healthBody) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	_, err = w.Write(data)
	if err != nil {
		return
	}
}
