package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clearbooks/clearbooks/internal/assets"
	"github.com/clearbooks/clearbooks/internal/auditor"
	"github.com/clearbooks/clearbooks/internal/notify"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// systemActorID attributes scheduled postings to the system user.
const systemActorID = 0

// DepreciationRunner books the monthly depreciation for one company.
type DepreciationRunner interface {
	RunMonthlyDepreciation(ctx context.Context, companyID int64, asOf time.Time, actorID int64) (assets.DepreciationRun, error)
}

// AuditRunner executes the consistency audit for one company.
type AuditRunner interface {
	RunAudit(ctx context.Context, companyID int64) (auditor.Report, error)
}

// Handlers bundles the task handler dependencies.
type Handlers struct {
	depreciation  DepreciationRunner
	audit         AuditRunner
	companies     CompanySource
	subscriptions SubscriptionSource
	idempotency   *shared.IdempotencyStore
	httpClient    *http.Client
	logger        *slog.Logger
	now           func() time.Time
}

// HandlersConfig collects the handler dependencies.
type HandlersConfig struct {
	Depreciation   DepreciationRunner
	Audit          AuditRunner
	Companies      CompanySource
	Subscriptions  SubscriptionSource
	Idempotency    *shared.IdempotencyStore
	WebhookTimeout time.Duration
	Logger         *slog.Logger
}

// NewHandlers constructs the task handlers.
func NewHandlers(cfg HandlersConfig) *Handlers {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handlers{
		depreciation:  cfg.Depreciation,
		audit:         cfg.Audit,
		companies:     cfg.Companies,
		subscriptions: cfg.Subscriptions,
		idempotency:   cfg.Idempotency,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// HandleDepreciationRun processes TaskDepreciationRun. A zero CompanyID fans
// out to every active company; each company run is guarded by an
// idempotency key so a redelivered task cannot double-book a month.
func (h *Handlers) HandleDepreciationRun(ctx context.Context, t *asynq.Task) error {
	var payload DepreciationRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Warn("malformed depreciation payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = h.now()
	}
	companyIDs, err := h.targets(ctx, payload.CompanyID)
	if err != nil {
		return err
	}
	var failed int
	for _, companyID := range companyIDs {
		key := fmt.Sprintf("depreciation:%d:%s", companyID, asOf.Format("2006-01"))
		if err := h.idempotency.CheckAndInsert(ctx, companyID, key, "assets"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				continue
			}
			return err
		}
		run, err := h.depreciation.RunMonthlyDepreciation(ctx, companyID, asOf, systemActorID)
		if err != nil {
			failed++
			// Releasing the key lets the retry attempt the company again.
			if delErr := h.idempotency.Delete(ctx, companyID, key); delErr != nil {
				h.logger.Error("idempotency key release failed",
					slog.Int64("company_id", companyID), slog.Any("error", delErr))
			}
			h.logger.Error("scheduled depreciation failed",
				slog.Int64("company_id", companyID), slog.Any("error", err))
			continue
		}
		h.logger.Info("scheduled depreciation complete",
			slog.Int64("company_id", companyID),
			slog.Int("assets", run.Count),
			slog.Float64("amount", run.TotalAmount))
	}
	if failed > 0 {
		return fmt.Errorf("depreciation run failed for %d of %d companies", failed, len(companyIDs))
	}
	return nil
}

// HandleAuditScan processes TaskAuditScan. Audits are read-only, so no
// idempotency guard is needed; a rerun just refreshes the score.
func (h *Handlers) HandleAuditScan(ctx context.Context, t *asynq.Task) error {
	var payload AuditScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Warn("malformed audit payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	companyIDs, err := h.targets(ctx, payload.CompanyID)
	if err != nil {
		return err
	}
	var failed int
	for _, companyID := range companyIDs {
		report, err := h.audit.RunAudit(ctx, companyID)
		if err != nil {
			failed++
			h.logger.Error("scheduled audit failed",
				slog.Int64("company_id", companyID), slog.Any("error", err))
			continue
		}
		h.logger.Info("scheduled audit complete",
			slog.Int64("company_id", companyID),
			slog.Int("score", report.Score),
			slog.Int("issues", len(report.Issues)))
	}
	if failed > 0 {
		return fmt.Errorf("audit scan failed for %d of %d companies", failed, len(companyIDs))
	}
	return nil
}

// HandleWebhookDispatch posts the event JSON to every subscribed endpoint.
// Malformed payloads are dropped without retry; endpoint failures are
// returned so asynq retries delivery.
func (h *Handlers) HandleWebhookDispatch(ctx context.Context, t *asynq.Task) error {
	var event notify.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		h.logger.Warn("malformed webhook payload", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if event.Name == "" || event.CompanyID == 0 {
		h.logger.Warn("incomplete webhook payload", slog.String("event", event.Name))
		return asynq.SkipRetry
	}
	urls, err := h.subscriptions.Endpoints(ctx, event.CompanyID, event.Name)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return asynq.SkipRetry
	}
	var failed int
	for _, url := range urls {
		if err := h.deliver(ctx, url, body); err != nil {
			failed++
			h.logger.Warn("webhook delivery failed",
				slog.String("url", url),
				slog.String("event", event.Name),
				slog.Any("error", err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("webhook delivery failed for %d of %d endpoints", failed, len(urls))
	}
	return nil
}

func (h *Handlers) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (h *Handlers) targets(ctx context.Context, companyID int64) ([]int64, error) {
	if companyID != 0 {
		return []int64{companyID}, nil
	}
	return h.companies.ActiveCompanyIDs(ctx)
}
