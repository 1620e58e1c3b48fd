// Package ledgerhttp exposes the posting engine over JSON endpoints.
package ledgerhttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/fiscal"
	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

const dateLayout = "2006-01-02"

const defaultListLimit = 50

// externalReferenceTypes are the tags a caller may set on a posting.
// System flows (cash, tax, depreciation, revaluation, reversal, year
// closing) stamp their own reference types internally; accepting them here
// would let a caller slip past the flows that gate those entries.
var externalReferenceTypes = map[ledger.ReferenceType]struct{}{
	ledger.ReferenceManualJournal: {},
	ledger.ReferenceAdjustment:    {},
}

type postingService interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
	Get(ctx context.Context, companyID, entryID int64) (ledger.JournalEntry, error)
	List(ctx context.Context, companyID int64, limit int) ([]ledger.JournalEntry, error)
	Reverse(ctx context.Context, input ledger.ReverseInput) (ledger.JournalEntry, error)
}

type autoPostService interface {
	RecordCashIncome(ctx context.Context, in ledger.CashFlowInput) (ledger.JournalEntry, error)
	RecordCashExpense(ctx context.Context, in ledger.CashFlowInput) (ledger.JournalEntry, error)
	SettleTax(ctx context.Context, in ledger.CashFlowInput) (ledger.JournalEntry, error)
}

// Handler wires HTTP endpoints for journal postings.
type Handler struct {
	logger    *slog.Logger
	service   postingService
	auto      autoPostService
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service postingService, auto autoPostService) *Handler {
	return &Handler{logger: logger, service: service, auto: auto, validator: validator.New()}
}

// MountRoutes registers journal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.post)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reverse", h.reverse)
	r.Post("/cash-income", h.cashIncome)
	r.Post("/cash-expense", h.cashExpense)
	r.Post("/tax-settlement", h.taxSettlement)
}

type lineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
	Note      string  `json:"note"`
}

type postRequest struct {
	Date          string        `json:"date" validate:"required"`
	Description   string        `json:"description" validate:"required"`
	ReferenceType string        `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Lines         []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type lineResponse struct {
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Note      string  `json:"note,omitempty"`
}

type entryResponse struct {
	ID            int64          `json:"id"`
	Number        int64          `json:"number"`
	Date          string         `json:"date"`
	Description   string         `json:"description"`
	ReferenceType string         `json:"reference_type"`
	ReferenceID   string         `json:"reference_id"`
	TotalDebit    float64        `json:"total_debit"`
	TotalCredit   float64        `json:"total_credit"`
	Lines         []lineResponse `json:"lines,omitempty"`
}

func toEntryResponse(entry ledger.JournalEntry) entryResponse {
	resp := entryResponse{
		ID:            entry.ID,
		Number:        entry.Number,
		Date:          entry.Date.Format(dateLayout),
		Description:   entry.Description,
		ReferenceType: string(entry.ReferenceType),
		ReferenceID:   entry.ReferenceID.String(),
		TotalDebit:    entry.TotalDebit,
		TotalCredit:   entry.TotalCredit,
	}
	for _, line := range entry.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Note:      line.Note,
		})
	}
	return resp
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	refType := ledger.ReferenceManualJournal
	if req.ReferenceType != "" {
		refType = ledger.ReferenceType(req.ReferenceType)
		if _, ok := externalReferenceTypes[refType]; !ok {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed",
				"reference_type must be manual_journal or adjustment")
			return
		}
	}
	refID := uuid.New()
	if req.ReferenceID != "" {
		parsed, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "reference_id must be a UUID")
			return
		}
		refID = parsed
	}
	input := ledger.PostingInput{
		CompanyID:     companyID,
		Date:          date,
		Description:   req.Description,
		ReferenceType: refType,
		ReferenceID:   refID,
		CreatedBy:     shared.ActorFromContext(r.Context()).ID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, ledger.PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Note:      line.Note,
		})
	}
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		h.respondError(w, "post journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := h.service.List(r.Context(), companyID, limit)
	if err != nil {
		h.respondError(w, "list journals", err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), companyID, entryID)
	if err != nil {
		h.respondError(w, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

type reverseRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	entryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	input := ledger.ReverseInput{
		CompanyID:   companyID,
		EntryID:     entryID,
		ActorID:     shared.ActorFromContext(r.Context()).ID,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	reversal, err := h.service.Reverse(r.Context(), input)
	if err != nil {
		h.respondError(w, "reverse journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(reversal))
}

type cashFlowRequest struct {
	Date        string  `json:"date" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required"`
}

func (h *Handler) cashIncome(w http.ResponseWriter, r *http.Request) {
	h.autoPost(w, r, "cash income", h.auto.RecordCashIncome)
}

func (h *Handler) cashExpense(w http.ResponseWriter, r *http.Request) {
	h.autoPost(w, r, "cash expense", h.auto.RecordCashExpense)
}

func (h *Handler) taxSettlement(w http.ResponseWriter, r *http.Request) {
	h.autoPost(w, r, "tax settlement", h.auto.SettleTax)
}

func (h *Handler) autoPost(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, ledger.CashFlowInput) (ledger.JournalEntry, error)) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	var req cashFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	entry, err := fn(r.Context(), ledger.CashFlowInput{
		CompanyID:   companyID,
		Date:        date,
		Amount:      req.Amount,
		Description: req.Description,
		ActorID:     shared.ActorFromContext(r.Context()).ID,
	})
	if err != nil {
		h.respondError(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrEntryNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, fiscal.ErrPeriodLocked), errors.Is(err, fiscal.ErrPeriodClosed):
		httpx.Problem(w, http.StatusConflict, "Period Not Open", err.Error())
	case errors.Is(err, ledger.ErrUnbalanced),
		errors.Is(err, ledger.ErrTooFewLines),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrPlaceholderAccount),
		errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, mapping.ErrMappingNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Posting Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
