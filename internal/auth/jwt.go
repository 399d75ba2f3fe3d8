// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

const (
	claimRole    = "role"
	claimVersion = "token_version"
	claimUse     = "use"
	useAccess    = "access"
)

// JWTManager signs member access tokens with ES256 and publishes the
// matching public key set.
type JWTManager struct {
	signing jwk.Key
	verify  jwk.Key
	jwks    jwk.Set
	cfg     config.JWTConfig
	now     func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	signing, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	verify, jwks, err := verificationSet(signing)
	if err != nil {
		return nil, err
	}

	return &JWTManager{
		signing: signing,
		verify:  verify,
		jwks:    jwks,
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// AccessTokenClaims are the member facts baked into a token at issue time.
// Role is refreshed from the member row on every verification.
type AccessTokenClaims struct {
	MemberID     string
	Role         string
	TokenVersion int
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

func (m *JWTManager) CreateAccessToken(claims AccessTokenClaims) (*IssuedToken, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.cfg.AccessTokenExpire)

	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.cfg.Issuer).
		Audience([]string{m.cfg.Audience}).
		Subject(claims.MemberID).
		IssuedAt(issuedAt).
		NotBefore(issuedAt).
		Expiration(expiresAt).
		Claim(claimRole, claims.Role).
		Claim(claimVersion, claims.TokenVersion).
		Claim(claimUse, useAccess).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), m.signing))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &IssuedToken{Token: string(signed), ExpiresAt: expiresAt}, nil
}

func (m *JWTManager) TokenLifetime() time.Duration {
	return m.cfg.AccessTokenExpire
}

// ParseAccessToken checks signature, issuer, audience and expiry. The
// revocation list is consulted by Service.VerifyAccessToken, not here.
func (m *JWTManager) ParseAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verify),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("parse access token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("parse access token: %w", core.ErrTokenInvalid)
	}

	var (
		use     string
		role    string
		version float64
	)
	if err := tok.Get(claimUse, &use); err != nil || use != useAccess {
		return nil, fmt.Errorf("parse access token: wrong use: %w", core.ErrTokenInvalid)
	}
	if err := tok.Get(claimRole, &role); err != nil {
		return nil, fmt.Errorf("parse access token: no role: %w", core.ErrTokenInvalid)
	}
	if err := tok.Get(claimVersion, &version); err != nil {
		return nil, fmt.Errorf("parse access token: no version: %w", core.ErrTokenInvalid)
	}

	memberID, ok := tok.Subject()
	if !ok || memberID == "" {
		return nil, fmt.Errorf("parse access token: no subject: %w", core.ErrTokenInvalid)
	}

	jti, _ := tok.JwtID()
	exp, _ := tok.Expiration()

	return &middleware.AccessTokenClaims{
		MemberID:     memberID,
		Role:         role,
		TokenVersion: int(version),
		JTI:          jti,
		ExpiresAt:    exp,
	}, nil
}

// JWKSHandler serves the public verification keys for other services.
func (m *JWTManager) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		core.JSON(w, http.StatusOK, m.jwks)
	}
}

func (m *JWTManager) KeyID() string {
	kid, _ := m.signing.KeyID()
	return kid
}
