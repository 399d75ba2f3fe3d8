// AngelaMos | 2026
// service.go

package activity

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pamojakenya/backend/internal/core"
)

const maxUserAgent = 500

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores a, assigning its ID. Oversized user agents are cut to
// maxUserAgent bytes on a rune boundary.
func (s *Service) Record(ctx context.Context, a Activity) error {
	if a.MemberID == "" || a.Kind == "" {
		return core.Validationf("activity needs a member and a kind")
	}
	a.ID = uuid.New().String()
	a.UserAgent = truncate(a.UserAgent, maxUserAgent)
	return s.repo.Create(ctx, &a)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Activity, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
