// AngelaMos | 2026
// logger.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pamojakenya/backend/internal/core"
)

const requestLogKey contextKey = "request_log"

// requestLog is shared by every layer handling one request so the access
// line can report the member that Authenticator resolved further down.
type requestLog struct {
	logger   *slog.Logger
	memberID string
}

// Logger emits one structured line per request once the response is
// written, and exposes a request-scoped logger through LoggerFrom.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			scoped := logger.With(slog.String("request_id", GetRequestID(r.Context())))
			if traceID := core.TraceIDFromContext(r.Context()); traceID != "" {
				scoped = scoped.With(slog.String("trace_id", traceID))
			}
			rl := &requestLog{logger: scoped}

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelInfo
				switch {
				case status >= http.StatusInternalServerError:
					level = slog.LevelError
				case status >= http.StatusBadRequest:
					level = slog.LevelWarn
				}

				attrs := []slog.Attr{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if rl.memberID != "" {
					attrs = append(attrs, slog.String("member_id", rl.memberID))
				}
				rl.logger.LogAttrs(r.Context(), level, "http request", attrs...)
			}()

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestLogKey, rl)))
		})
	}
}

// LoggerFrom returns the request-scoped logger, or slog.Default outside a
// request.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		return rl.logger
	}
	return slog.Default()
}

// NoteMember attaches memberID to the request's access line. Handlers that
// establish a session without a bearer token call it directly.
func NoteMember(ctx context.Context, memberID string) {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		rl.memberID = memberID
	}
}

// RequestMember returns the member noted for this request. Unlike MemberID
// it works above Authenticator, once the handler chain has returned.
func RequestMember(ctx context.Context) string {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok {
		return rl.memberID
	}
	return ""
}
