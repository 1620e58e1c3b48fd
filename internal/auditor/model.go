package auditor

import "time"

// Severity ranks audit issues.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ActionHint is presentation metadata pointing the user at a fix.
type ActionHint struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Issue is one finding from a consistency audit.
type Issue struct {
	Code        string
	Severity    Severity
	Title       string
	Description string
	Count       int
	Action      *ActionHint
}

// Report is the outcome of one audit run. Score starts at 100 and each
// check deducts independently; the result is clamped at 0.
type Report struct {
	CompanyID   int64
	Score       int
	IsBalanced  bool
	TotalDebit  float64
	TotalCredit float64
	Issues      []Issue
	CheckedAt   time.Time
}

// Deduction weights. These are contract values; tests pin them.
const (
	deductTrialBalance     = 40
	deductMapAbsent        = 20
	deductMissingRole      = 5
	deductNegativeStock    = 10
	deductUnbalancedEntry  = 10
	deductMissingYear      = 10
	deductPendingDep       = 5
	trialBalanceTolerance  = 0.1
	entryBalanceTolerance  = 0.01
	defaultEntryScanWindow = 50
)
