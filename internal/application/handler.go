// AngelaMos | 2026
// handler.go

package application

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

// documentFields are the multipart field names accepted for the identity
// document.
var documentFields = []string{"id_document", "document"}

type DocumentServer interface {
	Serve(w http.ResponseWriter, r *http.Request, ref string)
}

type Handler struct {
	service   *Service
	documents DocumentServer
	maxUpload int64
	validator *validator.Validate
}

func NewHandler(service *Service, documents DocumentServer, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		service:   service,
		documents: documents,
		maxUpload: maxUpload,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, limiter func(http.Handler) http.Handler,
) {
	r.Route("/applications", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListMine)
		r.Get("/{applicationID}", h.Get)
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/", h.Submit)
		})
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/applications", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAll)
		r.Get("/{applicationID}", h.Get)
		r.Get("/{applicationID}/document", h.Document)
		r.Post("/{applicationID}/approve", h.review(review.Approve))
		r.Post("/{applicationID}/reject", h.review(review.Reject))
	})
}

func reviewerFrom(r *http.Request) review.Reviewer {
	return review.Reviewer{
		ID:      middleware.MemberID(r.Context()),
		IsAdmin: middleware.IsAdmin(r.Context()),
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp files
	}()

	req := SubmitRequest{
		MembershipType: r.FormValue("membership_type"),
		FirstName:      r.FormValue("first_name"),
		MiddleName:     r.FormValue("middle_name"),
		LastName:       r.FormValue("last_name"),
		Email:          r.FormValue("email"),
		Phone:          r.FormValue("phone"),
		Address:        r.FormValue("address"),
		City:           r.FormValue("city"),
		State:          r.FormValue("state"),
		ZipCode:        r.FormValue("zip_code"),
		SpouseName:     r.FormValue("spouse_name"),
		SpousePhone:    r.FormValue("spouse_phone"),
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	in := SubmitInput{SubmitRequest: req}

	for _, field := range documentFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			core.BadRequest(w, "unreadable "+field)
			return
		}
		defer file.Close() //nolint:errcheck // read-only upload
		in.IDDocument = &storage.Upload{Filename: header.Filename, Body: file}
		break
	}

	a, err := h.service.Submit(r.Context(), middleware.MemberID(r.Context()), in)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.Created(w, ToApplicationResponse(a))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.ListForMember(r.Context(), middleware.MemberID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToApplicationResponseList(apps))
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := core.PageQuery(r)
	params := ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		MemberID: q.Get("member_id"),
		Status:   q.Get("status"),
		Type:     q.Get("membership_type"),
	}
	params.Normalize()

	apps, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToApplicationResponseList(apps), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), reviewerFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "application")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToApplicationResponse(a))
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), reviewerFrom(r), chi.URLParam(r, "applicationID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "application")
			return
		}
		core.HandleError(w, err)
		return
	}

	if a.IDDocument == "" || h.documents == nil {
		core.NotFound(w, "document")
		return
	}

	h.documents.Serve(w, r, a.IDDocument)
}

func (h *Handler) review(decision review.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			core.BadRequest(w, "invalid request body")
			return
		}

		if err := h.validator.Struct(req); err != nil {
			core.BadRequest(w, core.FormatValidationError(err))
			return
		}

		a, err := h.service.Review(r.Context(), ReviewInput{
			ApplicationID: chi.URLParam(r, "applicationID"),
			Decision:      decision,
			Reviewer:      reviewerFrom(r),
			Notes:         req.notes(),
		})
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				core.NotFound(w, "application")
				return
			}
			core.HandleError(w, err)
			return
		}

		core.OK(w, ToApplicationResponse(a))
	}
}
