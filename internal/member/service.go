// AngelaMos | 2026
// service.go

package member

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pamojakenya/backend/internal/auth"
	"github.com/pamojakenya/backend/internal/core"
)

type Service struct {
	repo  Repository
	tx    core.Transactor
	repos func(core.DBTX) Repository
}

// NewService reads through repo. Admin edits run inside tx against the
// repository repos builds for the transaction.
func NewService(
	repo Repository,
	tx core.Transactor,
	repos func(core.DBTX) Repository,
) *Service {
	return &Service{repo: repo, tx: tx, repos: repos}
}

// AccountByEmail looks up a live member for login.
func (s *Service) AccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	m, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	return toAccount(m), nil
}

func (s *Service) AccountByID(ctx context.Context, id string) (*auth.Account, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccount(m), nil
}

// Enroll creates a member with no shares, no membership type and status
// inactive.
func (s *Service) Enroll(ctx context.Context, e auth.Enrollment) (*auth.Account, error) {
	m := &Member{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(e.Email),
		PasswordHash: e.PasswordHash,
		Name:         e.Name,
		Phone:        e.Phone,
		Address:      e.Address,
		Role:         RoleMember,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return toAccount(m), nil
}

func (s *Service) RevokeSessions(ctx context.Context, memberID string) error {
	return s.repo.IncrementTokenVersion(ctx, memberID)
}

func (s *Service) SetPasswordHash(ctx context.Context, memberID, hash string) error {
	return s.repo.UpdatePassword(ctx, memberID, hash)
}

func (s *Service) GetMember(ctx context.Context, id string) (*Member, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetMe(ctx context.Context, memberID string) (*Member, error) {
	if memberID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, memberID)
}

// UpdateMe applies the self-service profile fields.
func (s *Service) UpdateMe(
	ctx context.Context,
	memberID string,
	req UpdateProfileRequest,
) (*Member, error) {
	if memberID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.repo.UpdateContact(ctx, memberID, req.Name, req.Phone, req.Address)
}

// UpdateMember applies an admin edit. Only the fields present on
// UpdateMemberRequest can change; status may only be set to suspended or
// lifted back to inactive, after which the next recompute derives the real
// status from history.
func (s *Service) UpdateMember(
	ctx context.Context,
	id string,
	req UpdateMemberRequest,
) (*Member, error) {
	var updated *Member
	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		m, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := applyAdminEdit(m, req); err != nil {
			return err
		}

		if err := repo.UpdateProfile(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func applyAdminEdit(m *Member, req UpdateMemberRequest) error {
	applyProfile(m, req.Name, req.Phone, req.Address)

	if req.Role != nil {
		if *req.Role != RoleMember && *req.Role != RoleAdmin {
			return core.Validationf("role must be member or admin")
		}
		m.Role = *req.Role
	}

	if req.MembershipType != nil {
		switch *req.MembershipType {
		case TypeNone, TypeSingle, TypeDouble:
			m.MembershipType = *req.MembershipType
		default:
			return core.Validationf("membership_type must be none, single or double")
		}
	}

	if req.MembershipStatus != nil {
		switch *req.MembershipStatus {
		case StatusSuspended:
			m.MembershipStatus = StatusSuspended
		case StatusInactive:
			if m.MembershipStatus != StatusSuspended {
				return fmt.Errorf(
					"only a suspended member can be reinstated: %w",
					core.ErrStateConflict,
				)
			}
			m.MembershipStatus = StatusInactive
		default:
			return core.Validationf("membership_status may only be set to suspended or inactive")
		}
	}

	return nil
}

func applyProfile(m *Member, name, phone, address *string) {
	if name != nil {
		m.Name = *name
	}
	if phone != nil {
		m.Phone = *phone
	}
	if address != nil {
		m.Address = *address
	}
}

func (s *Service) DeleteMe(ctx context.Context, memberID string) error {
	if memberID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, memberID)
}

func (s *Service) ListMembers(
	ctx context.Context,
	params ListMembersParams,
) ([]Member, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Overview(ctx context.Context) ([]StatusCount, error) {
	return s.repo.CountByStatus(ctx)
}

func toAccount(m *Member) *auth.Account {
	return &auth.Account{
		ID:               m.ID,
		Email:            m.Email,
		Name:             m.Name,
		Phone:            m.Phone,
		PasswordHash:     m.PasswordHash,
		Role:             m.Role,
		TokenVersion:     m.TokenVersion,
		MembershipStatus: m.MembershipStatus,
		MembershipType:   m.MembershipType,
		SharesOwned:      m.SharesOwned,
		CreatedAt:        m.CreatedAt,
	}
}

var _ auth.AccountStore = (*Service)(nil)
