package auditor

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearbooks/clearbooks/internal/platform/httpx"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// Handler wires HTTP endpoints for on-demand consistency audits.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auditor routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/report", h.report)
}

type issueResponse struct {
	Code        string      `json:"code"`
	Severity    string      `json:"severity"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Count       int         `json:"count,omitempty"`
	Action      *ActionHint `json:"action,omitempty"`
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	if companyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "company header required")
		return
	}
	report, err := h.service.RunAudit(r.Context(), companyID)
	if err != nil {
		h.logger.Error("run audit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	issues := make([]issueResponse, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, issueResponse{
			Code:        issue.Code,
			Severity:    string(issue.Severity),
			Title:       issue.Title,
			Description: issue.Description,
			Count:       issue.Count,
			Action:      issue.Action,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"company_id":   report.CompanyID,
		"score":        report.Score,
		"is_balanced":  report.IsBalanced,
		"total_debit":  report.TotalDebit,
		"total_credit": report.TotalCredit,
		"issues":       issues,
		"checked_at":   report.CheckedAt,
	})
}
