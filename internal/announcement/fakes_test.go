// AngelaMos | 2026
// fakes_test.go

package announcement

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/pamojakenya/backend/internal/core"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[string]*Announcement
	seq  int
}

func newMemRepo(list ...*Announcement) *memRepo {
	r := &memRepo{rows: map[string]*Announcement{}}
	for _, a := range list {
		r.rows[a.ID] = a
	}
	return r
}

func (r *memRepo) Create(_ context.Context, a *Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.CreatedAt = time.Date(2026, 6, 1, 8, 0, r.seq, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Announcement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id string) (*Announcement, error) {
	return r.GetByID(ctx, id)
}

func (r *memRepo) Update(_ context.Context, a *Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[a.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) List(_ context.Context, params ListParams) ([]Announcement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Announcement
	for _, a := range r.rows {
		if params.Visible {
			if !a.IsActive || !slices.Contains(params.Audiences, a.Audience) {
				continue
			}
			if a.ExpiresAt != nil && !a.ExpiresAt.After(params.Now) {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type memTx struct {
	mu sync.Mutex
}

func (t *memTx) InTx(_ context.Context, fn func(core.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(nil)
}

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memRepo) *Service {
	svc := NewService(repo, &memTx{}, func(core.DBTX) Repository { return repo })
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func at(t time.Time) *time.Time { return &t }
