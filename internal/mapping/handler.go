package mapping

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// Handler wires HTTP endpoints for the account role map.
type Handler struct {
	logger    *slog.Logger
	resolver  *Resolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver, validator: validator.New()}
}

// MountRoutes registers mapping routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.snapshot)
	r.Put("/{role}", h.set)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	snapshot, err := h.resolver.Snapshot(r.Context(), companyID)
	if err != nil {
		h.logger.Error("mapping snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make(map[string]int64, len(snapshot))
	for role, accountID := range snapshot {
		out[string(role)] = accountID
	}
	missing := make([]string, 0)
	for _, role := range AllRoles {
		if _, ok := snapshot[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"mappings": out,
		"missing":  missing,
	})
}

type setMappingRequest struct {
	AccountID int64 `json:"account_id" validate:"required"`
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	role := AccountRole(chi.URLParam(r, "role"))
	if !role.Valid() {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "unknown account role")
		return
	}
	var req setMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.resolver.Set(r.Context(), companyID, role, req.AccountID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "account not found")
			return
		}
		h.logger.Error("set mapping", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":       string(role),
		"account_id": req.AccountID,
	})
}
