// AngelaMos | 2026
// handler.go

package auth

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
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts /auth. Login and register sit behind limiter, which
// may be nil.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

func decode[T any](h *Handler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}
	return req, true
}

func writeAuthError(w http.ResponseWriter, err error, badCredentials string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		core.JSONError(w, core.UnauthorizedError(badCredentials))
	case errors.Is(err, ErrEmailExists):
		core.JSONError(w, core.DuplicateError("email"))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "member")
	default:
		core.HandleError(w, err)
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[LoginRequest](h, w, r)
	if !ok {
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeAuthError(w, err, "invalid email or password")
		return
	}

	middleware.NoteMember(r.Context(), session.Member.ID)
	core.OK(w, session)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[RegisterRequest](h, w, r)
	if !ok {
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeAuthError(w, err, "")
		return
	}

	middleware.NoteMember(r.Context(), session.Member.ID)
	core.Created(w, session)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.CurrentMember(r.Context(), middleware.MemberID(r.Context()))
	if err != nil {
		writeAuthError(w, err, "")
		return
	}

	core.OK(w, summary)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.ClaimsFrom(r.Context())); err != nil {
		core.HandleError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.LogoutAll(r.Context(), middleware.MemberID(r.Context())); err != nil {
		core.HandleError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[ChangePasswordRequest](h, w, r)
	if !ok {
		return
	}

	if err := h.service.ChangePassword(r.Context(), middleware.MemberID(r.Context()), req); err != nil {
		writeAuthError(w, err, "current password is incorrect")
		return
	}

	core.NoContent(w)
}
