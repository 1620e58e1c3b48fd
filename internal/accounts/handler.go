package accounts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// Handler wires HTTP endpoints for the chart of accounts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/balance", h.balance)
}

type createAccountRequest struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID      *int64 `json:"parent_id"`
	IsPlaceholder bool   `json:"is_placeholder"`
	Currency      string `json:"currency"`
}

type accountResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	ParentID      *int64 `json:"parent_id,omitempty"`
	IsPlaceholder bool   `json:"is_placeholder"`
	Currency      string `json:"currency"`
	IsActive      bool   `json:"is_active"`
}

func toAccountResponse(account Account) accountResponse {
	return accountResponse{
		ID:            account.ID,
		Code:          account.Code,
		Name:          account.Name,
		Type:          string(account.Type),
		ParentID:      account.ParentID,
		IsPlaceholder: account.IsPlaceholder,
		Currency:      account.Currency,
		IsActive:      account.IsActive,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	list, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, account := range list {
		out = append(out, toAccountResponse(account))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), Account{
		CompanyID:     companyID,
		Code:          req.Code,
		Name:          req.Name,
		Type:          AccountType(req.Type),
		ParentID:      req.ParentID,
		IsPlaceholder: req.IsPlaceholder,
		Currency:      req.Currency,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "parent account not found")
			return
		}
		h.logger.Error("create account", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(created))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	account, err := h.service.Get(r.Context(), companyID, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	balance, err := h.service.Balance(r.Context(), companyID, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
			return
		}
		h.logger.Error("account balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account_id":     balance.AccountID,
		"code":           balance.Code,
		"name":           balance.Name,
		"type":           string(balance.Type),
		"currency":       balance.Currency,
		"debit":          balance.Debit,
		"credit":         balance.Credit,
		"net":            balance.Net(),
		"foreign_debit":  balance.ForeignDebit,
		"foreign_credit": balance.ForeignCredit,
		"foreign_net":    balance.ForeignNet(),
	})
}
