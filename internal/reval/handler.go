package reval

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// Handler wires HTTP endpoints for FX revaluation.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers revaluation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/calculate", h.calculate)
	r.Post("/post", h.post)
}

type revalRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Rate      float64 `json:"rate" validate:"required,gt=0"`
}

type revalResponse struct {
	AccountID         int64   `json:"account_id"`
	Currency          string  `json:"currency"`
	ForeignBalance    float64 `json:"foreign_balance"`
	BookBalanceBase   float64 `json:"book_balance_base"`
	TargetBaseBalance float64 `json:"target_base_balance"`
	Diff              float64 `json:"diff"`
}

func toRevalResponse(result Revaluation) revalResponse {
	return revalResponse{
		AccountID:         result.AccountID,
		Currency:          result.Currency,
		ForeignBalance:    result.ForeignBalance,
		BookBalanceBase:   result.BookBalanceBase,
		TargetBaseBalance: result.TargetBaseBalance,
		Diff:              result.Diff,
	}
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	companyID, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.service.Calculate(r.Context(), companyID, req.AccountID, req.Rate)
	if err != nil {
		h.respondError(w, "calculate revaluation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRevalResponse(result))
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	companyID, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	result, err := h.service.Post(r.Context(), companyID, req.AccountID, req.Rate, shared.ActorFromContext(r.Context()).ID)
	if err != nil {
		h.respondError(w, "post revaluation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRevalResponse(result))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (int64, revalRequest, bool) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return 0, revalRequest{}, false
	}
	var req revalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return 0, revalRequest{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return 0, revalRequest{}, false
	}
	return companyID, req, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
	case errors.Is(err, ErrNotForeignCurrency), errors.Is(err, ErrInvalidRate), errors.Is(err, mapping.ErrMappingNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Revaluation Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
