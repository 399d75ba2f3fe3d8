// AngelaMos | 2026
// fakes_test.go

package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	apps    map[string]Application
	members map[string]member.Member

	failProfile error
}

func (s *memStore) InTx(_ context.Context, fn func(core.DBTX) error) error {
	s.mu.Lock()
	apps := make(map[string]Application, len(s.apps))
	for k, v := range s.apps {
		apps[k] = v
	}
	members := make(map[string]member.Member, len(s.members))
	for k, v := range s.members {
		members[k] = v
	}
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.apps, s.members = apps, members
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) stores() Stores {
	return Stores{
		Applications: func(core.DBTX) Repository { return memApps{s} },
		Members:      func(core.DBTX) MemberStore { return memMembers{s} },
	}
}

func (s *memStore) member(id string) member.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

func (s *memStore) app(id string) Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id]
}

type memApps struct{ s *memStore }

func (r memApps) Create(_ context.Context, a *Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.apps {
		if existing.MemberID == a.MemberID && existing.Status == review.StatusPending {
			return ErrPendingExists
		}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.apps[a.ID] = *a
	return nil
}

func (r memApps) GetByID(_ context.Context, id string) (*Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.apps[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &a, nil
}

func (r memApps) GetForUpdate(ctx context.Context, id string) (*Application, error) {
	return r.GetByID(ctx, id)
}

func (r memApps) HasPending(_ context.Context, memberID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.MemberID == memberID && a.Status == review.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r memApps) MarkReviewed(_ context.Context, a *Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.apps[a.ID]
	if !ok {
		return core.ErrNotFound
	}
	if cur.Status != review.StatusPending {
		return core.ErrStateConflict
	}
	r.s.apps[a.ID] = *a
	return nil
}

func (r memApps) ListForMember(_ context.Context, memberID string) ([]Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []Application
	for _, a := range r.s.apps {
		if a.MemberID == memberID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memApps) List(_ context.Context, params ListParams) ([]Application, int, error) {
	r.s.mu.Lock()
	var out []Application
	for _, a := range r.s.apps {
		if params.Status != "" && string(a.Status) != params.Status {
			continue
		}
		out = append(out, a)
	}
	r.s.mu.Unlock()
	return out, len(out), nil
}

type memMembers struct{ s *memStore }

func (r memMembers) GetByID(_ context.Context, id string) (*member.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &m, nil
}

func (r memMembers) GetForUpdate(ctx context.Context, id string) (*member.Member, error) {
	return r.GetByID(ctx, id)
}

func (r memMembers) UpdateProfile(_ context.Context, m *member.Member) error {
	if r.s.failProfile != nil {
		return r.s.failProfile
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.members[m.ID] = *m
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type memDocuments struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
}

func (d *memDocuments) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := prefix + "/id.pdf"
	d.saved = append(d.saved, ref)
	return ref, nil
}

func (d *memDocuments) Delete(_ context.Context, ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, ref)
	return nil
}

var (
	admin    = review.Reviewer{ID: "admin-1", IsAdmin: true}
	fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	store     *memStore
	notifier  *recordingNotifier
	documents *memDocuments
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: &memStore{
			apps: map[string]Application{},
			members: map[string]member.Member{
				"m-1": {
					ID:               "m-1",
					Name:             "Wanjiru",
					Email:            "wanjiru@example.com",
					MembershipStatus: member.StatusInactive,
					MembershipType:   member.TypeNone,
				},
			},
		},
		notifier:  &recordingNotifier{},
		documents: &memDocuments{},
	}
	f.svc = NewService(ServiceConfig{
		Tx:        f.store,
		Stores:    f.store.stores(),
		Documents: f.documents,
		Notifier:  f.notifier,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:     func() time.Time { return fixedNow },
	})
	return f
}

func validRequest(membershipType string) SubmitRequest {
	return SubmitRequest{
		MembershipType: membershipType,
		FirstName:      "Wanjiru",
		LastName:       "Kamau",
		Email:          "wanjiru@example.com",
		Phone:          "+254700000001",
		Address:        "12 Moi Avenue",
		City:           "Nairobi",
		State:          "Nairobi",
		ZipCode:        "00100",
	}
}

func document() *storage.Upload {
	return &storage.Upload{Filename: "id.pdf", Body: strings.NewReader("%PDF-1.4")}
}

func (f *fixture) submit(t *testing.T, membershipType string) *Application {
	t.Helper()
	a, err := f.svc.Submit(context.Background(), "m-1", SubmitInput{
		SubmitRequest: validRequest(membershipType),
		IDDocument:    document(),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return a
}
