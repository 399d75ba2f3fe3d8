// AngelaMos | 2026
// service_test.go

package member

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/core"
)

// memRepo is an in-memory Repository for service and handler tests.
// interleave runs once, after the next read or before the next contact
// write, standing in for another request committing mid-flight.
type memRepo struct {
	Repository
	mu         sync.Mutex
	members    map[string]*Member
	interleave func()
}

// memTx serializes transactions the way a member row lock would.
type memTx struct {
	mu sync.Mutex
}

func (t *memTx) InTx(_ context.Context, fn func(core.DBTX) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(nil)
}

func newTestService(repo *memRepo) (*Service, *memTx) {
	tx := &memTx{}
	return NewService(repo, tx, func(core.DBTX) Repository { return repo }), tx
}

func (r *memRepo) runInterleave() {
	r.mu.Lock()
	hook := r.interleave
	r.interleave = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func newMemRepo(members ...*Member) *memRepo {
	r := &memRepo{members: map[string]*Member{}}
	for _, m := range members {
		r.members[m.ID] = m
	}
	return r
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Member, error) {
	r.mu.Lock()
	m, ok := r.members[id]
	var c Member
	if ok {
		c = *m
	}
	r.mu.Unlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	r.runInterleave()
	return &c, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id string) (*Member, error) {
	return r.GetByID(ctx, id)
}

func (r *memRepo) UpdateContact(
	_ context.Context,
	id string,
	name, phone, address *string,
) (*Member, error) {
	r.runInterleave()
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	applyProfile(m, name, phone, address)
	c := *m
	return &c, nil
}

func (r *memRepo) UpdateProfile(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.ID]; !ok {
		return core.ErrNotFound
	}
	c := *m
	r.members[m.ID] = &c
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestUpdateMemberAllowList(t *testing.T) {
	repo := newMemRepo(&Member{
		ID:               "m-1",
		Name:             "Old",
		Role:             RoleMember,
		SharesOwned:      30,
		MembershipStatus: StatusActive,
		MembershipType:   TypeSingle,
	})
	svc, _ := newTestService(repo)

	m, err := svc.UpdateMember(context.Background(), "m-1", UpdateMemberRequest{
		Name:           ptr("New"),
		MembershipType: ptr(TypeDouble),
	})
	require.NoError(t, err)
	assert.Equal(t, "New", m.Name)
	assert.Equal(t, TypeDouble, m.MembershipType)
	assert.Equal(t, 30, m.SharesOwned)
	assert.Equal(t, StatusActive, m.MembershipStatus)
}

func TestUpdateMemberStatusOverrides(t *testing.T) {
	tests := []struct {
		name    string
		current string
		target  string
		want    string
		wantErr error
	}{
		{"suspend active", StatusActive, StatusSuspended, StatusSuspended, nil},
		{"lift suspension", StatusSuspended, StatusInactive, StatusInactive, nil},
		{"cannot deactivate active", StatusActive, StatusInactive, "", core.ErrStateConflict},
		{"cannot force active", StatusInactive, StatusActive, "", core.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(&Member{ID: "m-1", Role: RoleMember, MembershipStatus: tt.current})
			svc, _ := newTestService(repo)

			m, err := svc.UpdateMember(context.Background(), "m-1", UpdateMemberRequest{
				MembershipStatus: ptr(tt.target),
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.MembershipStatus)
		})
	}
}

func TestUpdateMeUnauthenticated(t *testing.T) {
	svc, _ := newTestService(newMemRepo())
	_, err := svc.UpdateMe(context.Background(), "", UpdateProfileRequest{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func (r *memRepo) setStatus(id, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[id].MembershipStatus = status
}

func TestUpdateMeKeepsConcurrentApproval(t *testing.T) {
	repo := newMemRepo(&Member{
		ID:               "m-1",
		Phone:            "0700000000",
		MembershipStatus: StatusPending,
		MembershipType:   TypeSingle,
	})
	svc, _ := newTestService(repo)
	repo.interleave = func() { repo.setStatus("m-1", StatusActive) }

	m, err := svc.UpdateMe(context.Background(), "m-1", UpdateProfileRequest{
		Phone: ptr("0711111111"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0711111111", m.Phone)
	assert.Equal(t, StatusActive, m.MembershipStatus)

	stored, err := repo.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, stored.MembershipStatus)
	assert.Equal(t, TypeSingle, stored.MembershipType)
}

func TestUpdateMemberWaitsForConcurrentApproval(t *testing.T) {
	repo := newMemRepo(&Member{
		ID:               "m-1",
		Name:             "Old",
		Role:             RoleMember,
		MembershipStatus: StatusPending,
		MembershipType:   TypeSingle,
	})
	svc, tx := newTestService(repo)

	approved := make(chan struct{})
	repo.interleave = func() {
		go func() {
			defer close(approved)
			_ = tx.InTx(context.Background(), func(core.DBTX) error {
				repo.setStatus("m-1", StatusActive)
				return nil
			})
		}()
	}

	_, err := svc.UpdateMember(context.Background(), "m-1", UpdateMemberRequest{
		Name: ptr("New"),
	})
	require.NoError(t, err)
	<-approved

	stored, err := repo.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "New", stored.Name)
	assert.Equal(t, StatusActive, stored.MembershipStatus)
}
