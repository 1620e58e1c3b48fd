package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clearbooks/clearbooks/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDepreciationRun books straight-line depreciation for every
	// active company. Scheduled monthly.
	TaskDepreciationRun = "depreciation:run"
	// TaskAuditScan runs the consistency audit for every active company.
	// Scheduled nightly.
	TaskAuditScan = "audit:scan"
	// TaskWebhookDispatch delivers one domain event to a company's
	// subscribed endpoints.
	TaskWebhookDispatch = "webhook:dispatch"
)

// Cron schedules, UTC.
const (
	// CronDepreciation fires at 02:00 on the first of every month.
	CronDepreciation = "0 2 1 * *"
	// CronAuditScan fires nightly at 03:30.
	CronAuditScan = "30 3 * * *"
)

// DepreciationRunPayload scopes a depreciation run. CompanyID zero means
// every active company; AsOf zero means the current time.
type DepreciationRunPayload struct {
	CompanyID int64     `json:"company_id,omitempty"`
	AsOf      time.Time `json:"as_of,omitempty"`
}

// AuditScanPayload scopes an audit scan. CompanyID zero means every active
// company.
type AuditScanPayload struct {
	CompanyID int64 `json:"company_id,omitempty"`
}

// NewDepreciationRunTask constructs the monthly depreciation task.
func NewDepreciationRunTask(payload DepreciationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationRun, data), nil
}

// NewAuditScanTask constructs the nightly audit task.
func NewAuditScanTask(payload AuditScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditScan, data), nil
}

// NewWebhookDispatchTask constructs a webhook delivery task for one event.
func NewWebhookDispatchTask(event notify.Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDispatch, data), nil
}
