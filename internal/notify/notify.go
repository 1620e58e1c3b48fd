// Package notify fans domain events out to subscribed webhooks. Delivery is
// asynchronous through the job queue and is strictly best-effort: a failed
// enqueue is logged, never returned to the caller.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/clearbooks/clearbooks/internal/ledger"
)

// Event names. Payloads are JSON objects keyed per event.
const (
	EventEntryPosted       = "journal_entry.posted"
	EventEntryReversed     = "journal_entry.reversed"
	EventDepreciationRun   = "depreciation.run"
	EventYearClosed        = "fiscal_year.closed"
	EventAuditCompleted    = "audit.completed"
	EventRevaluationPosted = "revaluation.posted"
)

// Event is one domain occurrence to be dispatched.
type Event struct {
	CompanyID  int64          `json:"company_id"`
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Enqueuer submits a dispatch job for an event. Implemented by the jobs
// client so notify stays free of queue details.
type Enqueuer interface {
	EnqueueWebhookDispatch(ctx context.Context, event Event) error
}

// Publisher hands events to the queue without blocking the caller on
// delivery.
type Publisher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// NewPublisher constructs an event publisher.
func NewPublisher(enqueuer Enqueuer, logger *slog.Logger) *Publisher {
	return &Publisher{enqueuer: enqueuer, logger: logger, now: time.Now}
}

// Publish enqueues the event for webhook delivery. Failures are logged and
// swallowed so ledger operations never fail on notification problems.
func (p *Publisher) Publish(ctx context.Context, companyID int64, name string, payload map[string]any) {
	if p == nil || p.enqueuer == nil {
		return
	}
	event := Event{
		CompanyID:  companyID,
		Name:       name,
		OccurredAt: p.now(),
		Payload:    payload,
	}
	if err := p.enqueuer.EnqueueWebhookDispatch(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("event enqueue failed",
			slog.String("event", name),
			slog.Int64("company_id", companyID),
			slog.Any("error", err))
	}
}

// EntryPosted implements the ledger's event port.
func (p *Publisher) EntryPosted(ctx context.Context, entry ledger.JournalEntry) {
	name := EventEntryPosted
	if entry.ReferenceType == ledger.ReferenceReversal {
		name = EventEntryReversed
	}
	p.Publish(ctx, entry.CompanyID, name, map[string]any{
		"entry_id":       entry.ID,
		"entry_number":   entry.Number,
		"reference_type": string(entry.ReferenceType),
		"total_debit":    entry.TotalDebit,
	})
}
