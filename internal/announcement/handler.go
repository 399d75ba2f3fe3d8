// AngelaMos | 2026
// handler.go

package announcement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/announcements", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListVisible)
		r.Get("/{announcementID}", h.Get)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/announcements", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAll)
		r.Post("/", h.Create)
		r.Get("/{announcementID}", h.GetAny)
		r.Put("/{announcementID}", h.Update)
		r.Delete("/{announcementID}", h.Delete)
	})
}

func pageParams(r *http.Request) ListParams {
	page := core.PageQuery(r)
	params := ListParams{Page: page.Number, PageSize: page.Size}
	params.Normalize()
	return params
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "announcement")
		return
	}
	core.HandleError(w, err)
}

func (h *Handler) ListVisible(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r)
	list, total, err := h.service.ListVisible(r.Context(), middleware.IsAdmin(r.Context()), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToAnnouncementResponseList(list), params.Page, params.PageSize, total)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r)
	list, total, err := h.service.ListAll(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToAnnouncementResponseList(list), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "announcementID"), middleware.IsAdmin(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToAnnouncementResponse(a))
}

func (h *Handler) GetAny(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetAny(r.Context(), chi.URLParam(r, "announcementID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToAnnouncementResponse(a))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	a, err := h.service.Create(r.Context(), middleware.MemberID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToAnnouncementResponse(a))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	a, err := h.service.Update(r.Context(), chi.URLParam(r, "announcementID"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToAnnouncementResponse(a))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "announcementID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}
