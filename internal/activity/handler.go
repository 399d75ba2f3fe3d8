// AngelaMos | 2026
// handler.go

package activity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/activity", h.ListMine)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/activities", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAll)
	})
}

// MemberRoutes adds a member's audit trail under an existing
// /admin/members/ subrouter.
func (h *Handler) MemberRoutes(r chi.Router) {
	r.Get("/{memberID}/activities", h.ListForMember)
}

func paramsFrom(r *http.Request) ListParams {
	page := core.PageQuery(r)
	params := ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Kind:     r.URL.Query().Get("kind"),
	}
	params.Normalize()
	return params
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := paramsFrom(r)
	params.ActorID = middleware.MemberID(r.Context())
	h.list(w, r, params, ToOwnActivityResponse)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := paramsFrom(r)
	params.ActorID = r.URL.Query().Get("member_id")
	h.list(w, r, params, ToActivityResponse)
}

func (h *Handler) ListForMember(w http.ResponseWriter, r *http.Request) {
	params := paramsFrom(r)
	params.SubjectID = chi.URLParam(r, "memberID")
	h.list(w, r, params, ToActivityResponse)
}

func (h *Handler) list(
	w http.ResponseWriter,
	r *http.Request,
	params ListParams,
	render func(*Activity) ActivityResponse,
) {
	list, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, toResponses(list, render), params.Page, params.PageSize, total)
}
