// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pamojakenya/backend/internal/core"
)

const claimsKey contextKey = "member_claims"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*AccessTokenClaims, error)
}

// AccessTokenClaims identify the member behind a request.
type AccessTokenClaims struct {
	MemberID     string
	Role         string
	TokenVersion int
	JTI          string
	ExpiresAt    time.Time
}

// Authenticator rejects requests without a valid bearer token and stores
// the verified claims on the request context.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				rejectToken(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func rejectToken(w http.ResponseWriter, r *http.Request, err error) {
	if appErr := core.DomainError(err); appErr != nil {
		core.JSONError(w, appErr)
		return
	}

	LoggerFrom(r.Context()).WarnContext(r.Context(), "token verification failed", "error", err)
	core.JSONError(w, core.TokenInvalidError())
}

func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	NoteMember(ctx, claims.MemberID)
	return context.WithValue(ctx, claimsKey, claims)
}

// RequireAdmin lets only admin members through. It must run after
// Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch MemberRole(r.Context()) {
		case "":
			core.JSONError(w, core.UnauthorizedError("authentication required"))
		case RoleAdmin:
			next.ServeHTTP(w, r)
		default:
			core.JSONError(w, core.ForbiddenError("admin access required"))
		}
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func ClaimsFrom(ctx context.Context) *AccessTokenClaims {
	claims, _ := ctx.Value(claimsKey).(*AccessTokenClaims)
	return claims
}

func MemberID(ctx context.Context) string {
	if c := ClaimsFrom(ctx); c != nil {
		return c.MemberID
	}
	return ""
}

func MemberRole(ctx context.Context) string {
	if c := ClaimsFrom(ctx); c != nil {
		return c.Role
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	return MemberRole(ctx) == RoleAdmin
}
