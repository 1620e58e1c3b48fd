package assets

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler wires HTTP endpoints for fixed assets and depreciation runs.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers asset routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/dispose", h.dispose)
	r.Post("/{id}/sell", h.sell)
	r.Post("/depreciation/run", h.runDepreciation)
}

type assetResponse struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Tag              string  `json:"tag,omitempty"`
	PurchaseDate     string  `json:"purchase_date"`
	Cost             float64 `json:"cost"`
	SalvageValue     float64 `json:"salvage_value"`
	UsefulLifeMonths int     `json:"useful_life_months"`
	Method           string  `json:"method"`
	Status           string  `json:"status"`
	BookValue        float64 `json:"book_value"`
	TotalDepreciated float64 `json:"total_depreciated"`
	LastDepreciation *string `json:"last_depreciation_at,omitempty"`
}

func toAssetResponse(asset FixedAsset) assetResponse {
	resp := assetResponse{
		ID:               asset.ID,
		Name:             asset.Name,
		Tag:              asset.Tag,
		PurchaseDate:     asset.PurchaseDate.Format(dateLayout),
		Cost:             asset.Cost,
		SalvageValue:     asset.SalvageValue,
		UsefulLifeMonths: asset.UsefulLifeMonths,
		Method:           string(asset.Method),
		Status:           string(asset.Status),
		BookValue:        asset.BookValue,
		TotalDepreciated: asset.TotalDepreciated,
	}
	if asset.LastDepreciationAt != nil {
		last := asset.LastDepreciationAt.Format(dateLayout)
		resp.LastDepreciation = &last
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	assets, err := h.service.ListActive(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]assetResponse, 0, len(assets))
	for _, asset := range assets {
		out = append(out, toAssetResponse(asset))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assets": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	assetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	asset, err := h.service.Get(r.Context(), companyID, assetID)
	if err != nil {
		h.respondError(w, "get asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssetResponse(asset))
}

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "dispose asset", h.service.Dispose)
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "sell asset", h.service.Sell)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, companyID, assetID int64) error) {
	companyID := shared.CompanyFromContext(r.Context())
	assetID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	if err := fn(r.Context(), companyID, assetID); err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": assetID})
}

type runDepreciationRequest struct {
	AsOf string `json:"as_of"`
}

func (h *Handler) runDepreciation(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	var req runDepreciationRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	asOf := time.Now()
	if req.AsOf != "" {
		parsed, err := time.Parse(dateLayout, req.AsOf)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	run, err := h.service.RunMonthlyDepreciation(r.Context(), companyID, asOf, shared.ActorFromContext(r.Context()).ID)
	if err != nil {
		h.respondError(w, "run depreciation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"assets_depreciated": run.Count,
		"total_amount":       run.TotalAmount,
		"entry_id":           run.EntryID,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrAccountLinksMissing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Depreciation Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
