// AngelaMos | 2026
// service.go

package announcement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pamojakenya/backend/internal/core"
)

type Service struct {
	repo  Repository
	tx    core.Transactor
	repos func(core.DBTX) Repository
	now   func() time.Time
}

func NewService(repo Repository, tx core.Transactor, repos func(core.DBTX) Repository) *Service {
	return &Service{
		repo:  repo,
		tx:    tx,
		repos: repos,
		now:   time.Now,
	}
}

func (s *Service) Create(ctx context.Context, authorID string, req CreateRequest) (*Announcement, error) {
	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, core.Validationf("expires_at must be in the future")
	}

	a := &Announcement{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Content:   req.Content,
		Priority:  PriorityMedium,
		Audience:  AudienceAll,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: authorID,
	}
	if req.Priority != "" {
		a.Priority = req.Priority
	}
	if req.Audience != "" {
		a.Audience = req.Audience
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update applies the fields present in req under a row lock.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Announcement, error) {
	if req.ExpiresAt != nil && !req.ClearExpiry && !req.ExpiresAt.After(s.now()) {
		return nil, core.Validationf("expires_at must be in the future")
	}

	var out *Announcement
	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		repo := s.repos(tx)

		a, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Content != nil {
			a.Content = *req.Content
		}
		if req.Priority != nil {
			a.Priority = *req.Priority
		}
		if req.Audience != nil {
			a.Audience = *req.Audience
		}
		if req.IsActive != nil {
			a.IsActive = *req.IsActive
		}
		switch {
		case req.ClearExpiry:
			a.ExpiresAt = nil
		case req.ExpiresAt != nil:
			a.ExpiresAt = req.ExpiresAt
		}

		if err := repo.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update announcement %s: %w", id, err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Get returns the announcement if the reader may see it. Hidden ones are
// reported as not found.
func (s *Service) Get(ctx context.Context, id string, isAdmin bool) (*Announcement, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.VisibleTo(isAdmin, s.now()) {
		return nil, fmt.Errorf("announcement %s: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// GetAny returns the announcement regardless of state, for admin editing.
func (s *Service) GetAny(ctx context.Context, id string) (*Announcement, error) {
	return s.repo.GetByID(ctx, id)
}

// ListVisible returns what a reader sees on the notice board.
func (s *Service) ListVisible(ctx context.Context, isAdmin bool, params ListParams) ([]Announcement, int, error) {
	params.Visible = true
	params.Now = s.now()
	params.Audiences = []string{AudienceAll, AudienceMembers}
	if isAdmin {
		params.Audiences = append(params.Audiences, AudienceAdmins)
	}
	return s.repo.List(ctx, params)
}

// ListAll returns every announcement, including drafts and expired ones.
func (s *Service) ListAll(ctx context.Context, params ListParams) ([]Announcement, int, error) {
	params.Visible = false
	return s.repo.List(ctx, params)
}
