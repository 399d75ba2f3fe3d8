// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
)

// Account is the slice of a member row the auth flows need.
type Account struct {
	ID               string
	Email            string
	Name             string
	Phone            string
	PasswordHash     string
	Role             string
	TokenVersion     int
	MembershipStatus string
	MembershipType   string
	SharesOwned      int
	CreatedAt        time.Time
}

type Enrollment struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Address      string
}

// AccountStore is implemented by the member service.
type AccountStore interface {
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	AccountByID(ctx context.Context, id string) (*Account, error)
	Enroll(ctx context.Context, e Enrollment) (*Account, error)
	RevokeSessions(ctx context.Context, memberID string) error
	SetPasswordHash(ctx context.Context, memberID, hash string) error
}

type Service struct {
	jwt         *JWTManager
	accounts    AccountStore
	revocations Revocations
	logger      *slog.Logger
}

func NewService(
	jwt *JWTManager,
	accounts AccountStore,
	revocations Revocations,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		jwt:         jwt,
		accounts:    accounts,
		revocations: revocations,
		logger:      logger,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	acct, err := s.accounts.AccountByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case errors.Is(err, core.ErrNotFound):
		_, _ = core.CheckPasswordConstantTime(req.Password, "")
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("login: %w", err)
	}

	check, err := core.CheckPasswordConstantTime(req.Password, acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !check.Match {
		return nil, ErrInvalidCredentials
	}

	if check.Upgraded != "" {
		if err := s.accounts.SetPasswordHash(ctx, acct.ID, check.Upgraded); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"member_id", acct.ID,
				"error", err,
			)
		}
	}

	return s.issue(acct)
}

// Register opens an account and signs the new member straight in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	acct, err := s.accounts.Enroll(ctx, Enrollment{
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "member registered", "member_id", acct.ID)
	return s.issue(acct)
}

// Logout revokes the presented access token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil || claims.JTI == "" {
		return fmt.Errorf("logout: %w", core.ErrTokenInvalid)
	}

	ttl := claims.ExpiresAt.Sub(s.jwt.now())
	if ttl <= 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.JTI, ttl)
}

// LogoutAll invalidates every token issued to the member so far.
func (s *Service) LogoutAll(ctx context.Context, memberID string) error {
	if err := s.accounts.RevokeSessions(ctx, memberID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	memberID string,
	req ChangePasswordRequest,
) error {
	acct, err := s.accounts.AccountByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	check, err := core.CheckPassword(req.CurrentPassword, acct.PasswordHash)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !check.Match {
		return ErrInvalidCredentials
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.accounts.SetPasswordHash(ctx, memberID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	return s.LogoutAll(ctx, memberID)
}

// VerifyAccessToken validates the token, then rejects it if it was logged
// out, if the member is gone, or if it predates the member's last LogoutAll.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(ctx, raw)
	if err != nil {
		return nil, err
	}

	if claims.JTI != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return nil, fmt.Errorf("verify token: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
		}
	}

	acct, err := s.accounts.AccountByID(ctx, claims.MemberID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("verify token: member gone: %w", core.ErrTokenRevoked)
	case err != nil:
		return nil, fmt.Errorf("verify token: %w", err)
	case claims.TokenVersion < acct.TokenVersion:
		return nil, fmt.Errorf("verify token: stale version: %w", core.ErrTokenRevoked)
	}

	claims.Role = acct.Role
	return claims, nil
}

func (s *Service) CurrentMember(ctx context.Context, memberID string) (*MemberSummary, error) {
	acct, err := s.accounts.AccountByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	summary := summarize(acct)
	return &summary, nil
}

func (s *Service) issue(acct *Account) (*Session, error) {
	issued, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		MemberID:     acct.ID,
		Role:         acct.Role,
		TokenVersion: acct.TokenVersion,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Member: summarize(acct),
		Token: AccessToken{
			Token:     issued.Token,
			Type:      "Bearer",
			ExpiresIn: int(s.jwt.TokenLifetime().Seconds()),
			ExpiresAt: issued.ExpiresAt,
		},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ middleware.TokenVerifier = (*Service)(nil)
