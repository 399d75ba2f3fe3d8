// AngelaMos | 2026
// fakes_test.go

package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

// memStore stands in for Postgres. txMu serialises transactions the way the
// member row lock does; dataMu guards the maps for reads outside a
// transaction. A failed transaction restores the pre-transaction state.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	entries map[string]Entry
	members map[string]member.Member

	failAggregate error
}

func newMemStore(members ...member.Member) *memStore {
	s := &memStore{
		entries: map[string]Entry{},
		members: map[string]member.Member{},
	}
	for _, m := range members {
		s.members[m.ID] = m
	}
	return s
}

func (s *memStore) InTx(_ context.Context, fn func(core.DBTX) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.dataMu.Lock()
	entries := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	members := make(map[string]member.Member, len(s.members))
	for k, v := range s.members {
		members[k] = v
	}
	s.dataMu.Unlock()

	if err := fn(nil); err != nil {
		s.dataMu.Lock()
		s.entries, s.members = entries, members
		s.dataMu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) stores() Stores {
	return Stores{
		Entries: func(core.DBTX) Repository { return memEntries{s} },
		Members: func(core.DBTX) MemberStore { return memMembers{s} },
	}
}

func (s *memStore) member(id string) member.Member {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.members[id]
}

func (s *memStore) entry(id string) Entry {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.entries[id]
}

func (s *memStore) putEntry(e Entry) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.entries[e.ID] = e
}

type memEntries struct{ s *memStore }

func (r memEntries) Create(_ context.Context, e *Entry) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.entries[e.ID] = *e
	return nil
}

func (r memEntries) GetByID(_ context.Context, id string) (*Entry, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &e, nil
}

func (r memEntries) GetForUpdate(ctx context.Context, id string) (*Entry, error) {
	return r.GetByID(ctx, id)
}

func (r memEntries) MarkReviewed(_ context.Context, e *Entry) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	cur, ok := r.s.entries[e.ID]
	if !ok || cur.Status != review.StatusPending {
		return core.ErrStateConflict
	}
	r.s.entries[e.ID] = *e
	return nil
}

func (r memEntries) ListApproved(_ context.Context, memberID string) ([]Entry, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []Entry
	for _, e := range r.s.entries {
		if e.MemberID == memberID && e.IsApproved() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memEntries) ListForMember(_ context.Context, memberID string) ([]Entry, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []Entry
	for _, e := range r.s.entries {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memEntries) List(ctx context.Context, p ListParams) ([]Entry, int, error) {
	all, err := r.ListForMember(ctx, p.MemberID)
	return all, len(all), err
}

type memMembers struct{ s *memStore }

func (r memMembers) GetByID(_ context.Context, id string) (*member.Member, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &m, nil
}

func (r memMembers) GetForUpdate(ctx context.Context, id string) (*member.Member, error) {
	return r.GetByID(ctx, id)
}

func (r memMembers) UpdateAggregate(_ context.Context, id string, agg member.Aggregate) error {
	if r.s.failAggregate != nil {
		return r.s.failAggregate
	}
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return core.ErrNotFound
	}
	m.SharesOwned = agg.SharesOwned
	m.MembershipStatus = agg.MembershipStatus
	m.ActivationDate = agg.ActivationDate
	r.s.members[id] = m
	return nil
}

func (r memMembers) ListHolding(_ context.Context, minShares int) ([]member.Member, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []member.Member
	for _, m := range r.s.members {
		if m.SharesOwned >= minShares {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memMembers) ListIDs(_ context.Context) ([]string, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	ids := make([]string, 0, len(r.s.members))
	for id := range r.s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
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

type memProofs struct {
	mu    sync.Mutex
	saved []string
}

func (p *memProofs) Save(_ context.Context, prefix, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := prefix + "/doc.pdf"
	p.saved = append(p.saved, ref)
	return ref, nil
}

func (p *memProofs) Delete(context.Context, string) error { return nil }

var (
	admin    = review.Reviewer{ID: "admin-1", IsAdmin: true}
	nonAdmin = review.Reviewer{ID: "m-1", IsAdmin: false}
	fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

func testPolicy(rule string) Policy {
	return Policy{
		SharePrice:          decimal.NewFromInt(25),
		ActivationThreshold: 20,
		ActivationRule:      rule,
	}
}

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	proofs   *memProofs
	svc      *Service
}

func newFixture(t *testing.T, rule string, members ...member.Member) *fixture {
	t.Helper()

	if len(members) == 0 {
		members = []member.Member{{
			ID:               "m-1",
			Name:             "Wanjiru",
			Email:            "wanjiru@example.com",
			MembershipStatus: member.StatusInactive,
			MembershipType:   member.TypeNone,
		}}
	}

	f := &fixture{
		store:    newMemStore(members...),
		notifier: &recordingNotifier{},
		proofs:   &memProofs{},
	}
	f.svc = NewService(ServiceConfig{
		Tx:       f.store,
		Stores:   f.store.stores(),
		Proofs:   f.proofs,
		Notifier: f.notifier,
		Policy:   testPolicy(rule),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) submit(t *testing.T, kind Kind, amount int64) *Entry {
	t.Helper()
	in := SubmitInput{
		Kind:   kind,
		Amount: decimal.NewFromInt(amount),
		Method: MethodMpesa,
	}
	if kind.RequiresProof() {
		in.Proof = &storage.Upload{Filename: "proof.pdf", Body: strings.NewReader("%PDF-1.4")}
	}
	e, err := f.svc.Submit(context.Background(), "m-1", in)
	require.NoError(t, err)
	return e
}

func (f *fixture) approve(t *testing.T, id string) *Entry {
	t.Helper()
	e, err := f.svc.Review(context.Background(), ReviewInput{
		EntryID:  id,
		Decision: review.Approve,
		Reviewer: admin,
	})
	require.NoError(t, err)
	return e
}

var errBoom = errors.New("boom")
