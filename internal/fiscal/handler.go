package fiscal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler wires HTTP endpoints for fiscal year management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers fiscal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/lock", h.lock)
	r.Post("/{id}/close", h.close)
}

type yearResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Status    string   `json:"status"`
	ClosedAt  *string  `json:"closed_at,omitempty"`
	ClosedBy  *int64   `json:"closed_by,omitempty"`
	NetIncome *float64 `json:"net_income,omitempty"`
}

func toYearResponse(year FiscalYear) yearResponse {
	resp := yearResponse{
		ID:        year.ID,
		Name:      year.Name,
		StartDate: year.StartDate.Format(dateLayout),
		EndDate:   year.EndDate.Format(dateLayout),
		Status:    string(year.Status),
		ClosedBy:  year.ClosedBy,
		NetIncome: year.NetIncome,
	}
	if year.ClosedAt != nil {
		closed := year.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	years, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list fiscal years", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]yearResponse, 0, len(years))
	for _, year := range years {
		out = append(out, toYearResponse(year))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiscal_years": out})
}

type createYearRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	var req createYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	year, err := h.service.Create(r.Context(), CreateYearInput{
		CompanyID: companyID,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.respondError(w, "create fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toYearResponse(year))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	yearID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	year, err := h.service.Get(r.Context(), companyID, yearID)
	if err != nil {
		h.respondError(w, "get fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toYearResponse(year))
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	yearID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	year, err := h.service.Lock(r.Context(), companyID, yearID, shared.ActorFromContext(r.Context()).ID)
	if err != nil {
		h.respondError(w, "lock fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toYearResponse(year))
}

type closeYearRequest struct {
	ClosingDate string `json:"closing_date"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	yearID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid fiscal year id")
		return
	}
	var req closeYearRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	var closingDate time.Time
	if req.ClosingDate != "" {
		closingDate, err = time.Parse(dateLayout, req.ClosingDate)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "closing_date must be YYYY-MM-DD")
			return
		}
	}
	year, err := h.service.Close(r.Context(), companyID, yearID, closingDate, shared.ActorFromContext(r.Context()).ID)
	if err != nil {
		h.respondError(w, "close fiscal year", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toYearResponse(year))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrYearNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPeriodClosed), errors.Is(err, ErrYearOverlap):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNoRetainedEarnings):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Closing Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
