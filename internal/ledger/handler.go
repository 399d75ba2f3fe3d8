// AngelaMos | 2026
// handler.go

package ledger

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/middleware"
	"github.com/pamojakenya/backend/internal/review"
	"github.com/pamojakenya/backend/internal/storage"
)

// proofFields are the multipart field names clients have used for the
// supporting document.
var proofFields = []string{"proof", "payment_proof", "evidence_file"}

// DocumentServer streams a stored document by reference.
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

// RegisterRoutes mounts the member-facing submission and history routes.
// limiter, when set, wraps the POST endpoints only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, limiter func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		if limiter != nil {
			r.Use(limiter)
		}

		r.Post("/payments", h.submit(""))
		r.Post("/payments/activation", h.submit(KindActivationFee))
		r.Post("/shares/buy", h.submit(KindSharePurchase))
		r.Post("/claims", h.submit(KindClaimPayout))

		r.Get("/payments", h.ListMine)
		r.Get("/payments/{entryID}", h.GetEntry)
	})
}

// RegisterAdminRoutes mounts entry review and bulk share operations.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/entries", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListAll)
		r.Get("/{entryID}", h.GetEntry)
		r.Get("/{entryID}/proof", h.Proof)
		r.Post("/{entryID}/approve", h.review(review.Approve))
		r.Post("/{entryID}/reject", h.review(review.Reject))
	})

	r.Route("/admin/shares", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/deduct-all", h.DeductFromAll)
	})
}

// MemberRoutes adds per-member ledger actions under an existing
// /admin/members/ subrouter.
func (h *Handler) MemberRoutes(r chi.Router) {
	r.Post("/{memberID}/recompute", h.Recompute)
	r.Post("/{memberID}/deductions", h.Deduct)
	r.Get("/{memberID}/entries", h.ListForMember)
}

func reviewerFrom(r *http.Request) review.Reviewer {
	return review.Reviewer{
		ID:      middleware.MemberID(r.Context()),
		IsAdmin: middleware.IsAdmin(r.Context()),
	}
}

func (h *Handler) submit(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID := middleware.MemberID(r.Context())

		in, cleanup, err := h.decodeSubmission(w, r, kind)
		defer cleanup()
		if err != nil {
			core.HandleError(w, err)
			return
		}

		e, err := h.service.Submit(r.Context(), memberID, in)
		if err != nil {
			core.HandleError(w, err)
			return
		}

		core.Created(w, ToEntryResponse(e, h.service.Policy()))
	}
}

// decodeSubmission accepts either a multipart form carrying the proof
// document or a plain JSON body.
func (h *Handler) decodeSubmission(
	w http.ResponseWriter,
	r *http.Request,
	kind Kind,
) (SubmitInput, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return SubmitInput{}, noop, core.ValidationError("invalid request body")
		}
		if err := h.validator.Struct(req); err != nil {
			return SubmitInput{}, noop, core.ValidationError(core.FormatValidationError(err))
		}
		return req.toInput(kind), noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return SubmitInput{}, noop, core.ValidationError("invalid multipart form")
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp files
		}
	}

	req := SubmitRequest{
		Kind:          r.FormValue("kind"),
		PaymentMethod: firstNonEmpty(r.FormValue("payment_method"), r.FormValue("method")),
		TransactionID: r.FormValue("transaction_id"),
		Description:   r.FormValue("description"),
		Notes:         r.FormValue("notes"),
	}

	if raw := strings.TrimSpace(r.FormValue("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return SubmitInput{}, cleanup, core.ValidationError("amount must be a number")
		}
		req.Amount = amount
	}

	for _, field := range []string{"shares_requested", "shares_purchased"} {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return SubmitInput{}, cleanup, core.ValidationError(field + " must be a whole number")
		}
		req.SharesRequested = &n
		break
	}

	if err := h.validator.Struct(req); err != nil {
		return SubmitInput{}, cleanup, core.ValidationError(core.FormatValidationError(err))
	}

	in := req.toInput(kind)

	file, header, err := formFile(r)
	if err != nil {
		return SubmitInput{}, cleanup, err
	}
	if file != nil {
		in.Proof = &storage.Upload{Filename: header.Filename, Body: file}
		prev := cleanup
		cleanup = func() {
			_ = file.Close() //nolint:errcheck // read-only upload
			prev()
		}
	}

	return in, cleanup, nil
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range proofFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, nil, core.ValidationError("unreadable " + field)
		}
		return file, header, nil
	}
	return nil, nil, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) listParams(r *http.Request) ListParams {
	q := r.URL.Query()
	page := core.PageQuery(r)
	params := ListParams{
		Page:     page.Number,
		PageSize: page.Size,
		Kind:     q.Get("kind"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}
	params.Normalize()
	return params
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := h.listParams(r)
	params.MemberID = middleware.MemberID(r.Context())
	h.list(w, r, params)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := h.listParams(r)
	params.MemberID = r.URL.Query().Get("member_id")
	h.list(w, r, params)
}

func (h *Handler) ListForMember(w http.ResponseWriter, r *http.Request) {
	params := h.listParams(r)
	params.MemberID = chi.URLParam(r, "memberID")
	h.list(w, r, params)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, params ListParams) {
	entries, total, err := h.service.ListEntries(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToEntryResponseList(entries, h.service.Policy()),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetEntry(r.Context(), reviewerFrom(r), chi.URLParam(r, "entryID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "entry")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, ToEntryResponse(e, h.service.Policy()))
}

// Proof streams the supporting document of an entry.
func (h *Handler) Proof(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetEntry(r.Context(), reviewerFrom(r), chi.URLParam(r, "entryID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "entry")
			return
		}
		core.HandleError(w, err)
		return
	}

	if e.ProofRef == nil || h.documents == nil {
		core.NotFound(w, "proof")
		return
	}

	h.documents.Serve(w, r, *e.ProofRef)
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

		e, err := h.service.Review(r.Context(), ReviewInput{
			EntryID:        chi.URLParam(r, "entryID"),
			Decision:       decision,
			Reviewer:       reviewerFrom(r),
			SharesAssigned: req.shares(),
			AmountApproved: req.AmountApproved,
			Notes:          req.notes(),
		})
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				core.NotFound(w, "entry")
				return
			}
			core.HandleError(w, err)
			return
		}

		core.OK(w, ToEntryResponse(e, h.service.Policy()))
	}
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Recompute(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.OK(w, snap)
}

type deductionResponse struct {
	Entry    EntryResponse `json:"entry"`
	Snapshot Snapshot      `json:"snapshot"`
}

func (h *Handler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	e, snap, err := h.service.DeductShares(
		r.Context(),
		reviewerFrom(r),
		chi.URLParam(r, "memberID"),
		req.Shares,
		req.Reason,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "member")
			return
		}
		core.HandleError(w, err)
		return
	}

	core.Created(w, deductionResponse{
		Entry:    ToEntryResponse(e, h.service.Policy()),
		Snapshot: snap,
	})
}

func (h *Handler) DeductFromAll(w http.ResponseWriter, r *http.Request) {
	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.DeductSharesFromAll(
		r.Context(),
		reviewerFrom(r),
		req.Shares,
		req.Reason,
	)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, result)
}
