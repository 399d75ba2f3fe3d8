// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ok(context.Context) error { return nil }

func refused(context.Context) error { return errors.New("connection refused") }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantBody   string
	}{
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "database", Checker: pingFunc(ok)},
				{Name: "redis", Checker: pingFunc(ok)},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "critical failing",
			deps: []Dependency{
				{Name: "database", Checker: pingFunc(ok)},
				{Name: "redis", Checker: pingFunc(refused)},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   StatusUnavailable,
		},
		{
			name: "optional failing",
			deps: []Dependency{
				{Name: "database", Checker: pingFunc(ok)},
				{Name: "notifications", Checker: pingFunc(refused), Optional: true},
			},
			wantStatus: http.StatusOK,
			wantBody:   StatusDegraded,
		},
		{
			name:       "missing checker",
			deps:       []Dependency{{Name: "storage"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   StatusUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.deps...)
			rec := httptest.NewRecorder()

			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ReadinessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Len(t, body.Checks, len(tt.deps))
		})
	}
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: pingFunc(ok)})
	h.SetShutdown(true)

	for _, probe := range []http.HandlerFunc{h.Liveness, h.Readiness} {
		rec := httptest.NewRecorder()
		probe(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
}
