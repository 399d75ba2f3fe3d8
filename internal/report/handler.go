// AngelaMos | 2026
// handler.go

package report

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pamojakenya/backend/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/reports", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/financial", h.Financial)
		r.Get("/financial.xlsx", h.FinancialExport)
		r.Get("/shares", h.Shares)
	})
}

func rangeFrom(r *http.Request) (Range, error) {
	from, err := core.DateQuery(r, "from")
	if err != nil {
		return Range{}, err
	}
	to, err := core.DateQuery(r, "to")
	if err != nil {
		return Range{}, err
	}
	return Range{From: from, To: to}, nil
}

func (h *Handler) Financial(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFrom(r)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	rep, err := h.service.Financial(r.Context(), rng)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, rep)
}

func (h *Handler) FinancialExport(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFrom(r)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	rep, err := h.service.Financial(r.Context(), rng)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	body, err := FinancialXLSX(rep)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	name := "financial-" + rep.GeneratedAt.Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body) //nolint:errcheck // client gone
}

func (h *Handler) Shares(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Shares(r.Context())
	if err != nil {
		core.HandleError(w, err)
		return
	}

	core.OK(w, rep)
}
