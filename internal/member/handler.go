// AngelaMos | 2026
// handler.go

package member

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

// Refresher re-derives a member's aggregate from ledger history. It runs
// after an admin changes membership_status so a lifted suspension lands on
// the status the history supports.
type Refresher func(ctx context.Context, memberID string) error

type Handler struct {
	service   *Service
	refresh   Refresher
	validator *validator.Validate
}

func NewHandler(service *Service, refresh Refresher) *Handler {
	return &Handler{
		service:   service,
		refresh:   refresh,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/members", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.MemberID(r.Context())

	m, err := h.service.GetMe(r.Context(), memberID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToMemberResponse(m))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.MemberID(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, err := h.service.UpdateMe(r.Context(), memberID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToMemberResponse(m))
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	memberID := middleware.MemberID(r.Context())

	if err := h.service.DeleteMe(r.Context(), memberID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.NoContent(w)
}

// RegisterAdminRoutes registers admin-only member management endpoints.
// extra mounts additional per-member routes owned by other packages.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
	extra ...func(chi.Router),
) {
	r.Route("/admin/members", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListMembers)
		r.Get("/overview", h.Overview)
		r.Get("/{memberID}", h.GetMember)
		r.Put("/{memberID}", h.UpdateMember)

		for _, mount := range extra {
			mount(r)
		}
	})
}

// ListMembers returns a paginated list of members with optional filtering.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := core.PageQuery(r)
	params := ListMembersParams{
		Page:             page.Number,
		PageSize:         page.Size,
		Search:           q.Get("search"),
		Role:             q.Get("role"),
		MembershipStatus: q.Get("membership_status"),
		MembershipType:   q.Get("membership_type"),
	}
	params.Normalize()

	members, total, err := h.service.ListMembers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToMemberResponseList(members),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Overview(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, counts)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToMemberResponse(m))
}

// UpdateMember applies the allow-listed admin edit.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	var req UpdateMemberRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body: only name, phone, address, role, membership_type and membership_status may be changed")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, err := h.service.UpdateMember(r.Context(), memberID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	if req.MembershipStatus != nil && h.refresh != nil {
		if err := h.refresh(r.Context(), memberID); err != nil {
			core.HandleError(w, err)
			return
		}
		if m, err = h.service.GetMember(r.Context(), memberID); err != nil {
			core.HandleError(w, err)
			return
		}
	}

	core.OK(w, ToMemberResponse(m))
}
