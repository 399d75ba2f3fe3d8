// AngelaMos | 2026
// middleware.go

package activity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pamojakenya/backend/internal/metrics"
	"github.com/pamojakenya/backend/internal/middleware"
)

const recordTimeout = 2 * time.Second

type Recorder interface {
	Record(ctx context.Context, a Activity) error
}

// Middleware audits state-changing requests that succeeded. It reads the
// matched route after the handler returns, so it must wrap the router that
// owns the routes in rules, and it must sit below middleware.Logger.
// A failed write is logged and never changes the response.
func Middleware(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return
			}

			rctx := chi.RouteContext(r.Context())
			memberID := middleware.RequestMember(r.Context())
			if rctx == nil || memberID == "" {
				return
			}

			rl, ok := match(r.Method, rctx.RoutePattern())
			if !ok {
				return
			}

			a := Activity{
				MemberID:    memberID,
				Kind:        rl.kind,
				Description: rl.description,
				TargetID:    targetOf(rctx),
				IPAddress:   strings.TrimPrefix(middleware.ClientIP(r), "ip:"),
				UserAgent:   r.UserAgent(),
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
			defer cancel()

			err := rec.Record(ctx, a)
			metrics.ObserveActivity(string(a.Kind), err)
			if err != nil {
				middleware.LoggerFrom(r.Context()).WarnContext(ctx, "activity not recorded",
					"kind", a.Kind,
					"error", err,
				)
			}
		})
	}
}

// targetOf returns the last named URL parameter of the matched route. The
// "*" keys chi leaves behind for mounted subrouters are skipped.
func targetOf(rctx *chi.Context) string {
	keys, values := rctx.URLParams.Keys, rctx.URLParams.Values
	for i := min(len(keys), len(values)) - 1; i >= 0; i-- {
		if keys[i] != "*" {
			return values[i]
		}
	}
	return ""
}
