package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// Handler exposes the stock level projection.
type Handler struct {
	logger *slog.Logger
	reader Reader
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, reader Reader) *Handler {
	return &Handler{logger: logger, reader: reader}
}

// MountRoutes registers inventory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.levels)
}

func (h *Handler) levels(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	levels, err := h.reader.Levels(r.Context(), companyID)
	if err != nil {
		h.logger.Error("stock levels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(levels))
	for _, level := range levels {
		out = append(out, map[string]any{
			"product_id": level.ProductID,
			"name":       level.Name,
			"quantity":   level.Quantity,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"levels": out})
}
