// AngelaMos | 2026
// handler_test.go

package member

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

func asAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
			MemberID: "admin-1",
			Role:     middleware.RoleAdmin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newAdminRouter(repo *memRepo, refresh Refresher) http.Handler {
	r := chi.NewRouter()
	svc, _ := newTestService(repo)
	NewHandler(svc, refresh).RegisterAdminRoutes(r, asAdmin, middleware.RequireAdmin)
	return r
}

func TestAdminUpdateRejectsShares(t *testing.T) {
	repo := newMemRepo(&Member{ID: "m-1", Role: RoleMember, SharesOwned: 3})
	router := newAdminRouter(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/admin/members/m-1",
		strings.NewReader(`{"shares_owned": 500}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	m, err := repo.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 3, m.SharesOwned)
}

func TestAdminLiftSuspensionRefreshes(t *testing.T) {
	repo := newMemRepo(&Member{ID: "m-1", Role: RoleMember, MembershipStatus: StatusSuspended})
	var refreshed string
	refresh := func(_ context.Context, id string) error {
		refreshed = id
		repo.mu.Lock()
		repo.members[id].MembershipStatus = StatusActive
		repo.mu.Unlock()
		return nil
	}
	router := newAdminRouter(repo, refresh)

	req := httptest.NewRequest(http.MethodPut, "/admin/members/m-1",
		strings.NewReader(`{"membership_status": "inactive"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m-1", refreshed)

	var body struct {
		core.Response
		Data MemberResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusActive, body.Data.MembershipStatus)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	asMember := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				MemberID: "m-2",
				Role:     middleware.RoleMember,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	r := chi.NewRouter()
	svc, _ := newTestService(newMemRepo())
	NewHandler(svc, nil).RegisterAdminRoutes(r, asMember, middleware.RequireAdmin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/members/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
