// Package auditor scores the integrity of a company's ledger and related
// state. It is strictly read-only: data problems become scored issues, and
// only operational failures surface as errors.
package auditor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clearbooks/clearbooks/internal/assets"
	"github.com/clearbooks/clearbooks/internal/mapping"
)

// MetricsPort publishes the latest score.
type MetricsPort interface {
	AuditScore(companyID int64, score int)
}

// Service runs consistency audits.
type Service struct {
	repo       Repository
	metrics    MetricsPort
	logger     *slog.Logger
	scanWindow int
	now        func() time.Time
}

// NewService constructs the auditor. scanWindow bounds the per-entry
// balance recheck; zero selects the default of 50.
func NewService(repo Repository, metrics MetricsPort, logger *slog.Logger, scanWindow int) *Service {
	if scanWindow <= 0 {
		scanWindow = defaultEntryScanWindow
	}
	return &Service{repo: repo, metrics: metrics, logger: logger, scanWindow: scanWindow, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// results collects per-check outputs before deterministic assembly.
type results struct {
	totalDebit      float64
	totalCredit     float64
	mappingSnapshot map[mapping.AccountRole]int64
	negativeStock   int
	unbalanced      []RecentEntry
	hasCurrentYear  bool
	pendingDep      int
}

// RunAudit executes every check and assembles the weighted report. Checks
// run concurrently; deductions accumulate independently and the score is
// clamped at zero.
func (s *Service) RunAudit(ctx context.Context, companyID int64) (Report, error) {
	now := s.now()
	var res results

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		debit, credit, err := s.repo.TrialBalanceTotals(gctx, companyID)
		if err != nil {
			return fmt.Errorf("auditor: trial balance: %w", err)
		}
		res.totalDebit, res.totalCredit = debit, credit
		return nil
	})
	g.Go(func() error {
		snapshot, err := s.repo.MappingSnapshot(gctx, companyID)
		if err != nil {
			return fmt.Errorf("auditor: mapping snapshot: %w", err)
		}
		res.mappingSnapshot = snapshot
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.NegativeStockCount(gctx, companyID)
		if err != nil {
			return fmt.Errorf("auditor: stock levels: %w", err)
		}
		res.negativeStock = count
		return nil
	})
	g.Go(func() error {
		entries, err := s.repo.RecentEntries(gctx, companyID, s.scanWindow)
		if err != nil {
			return fmt.Errorf("auditor: recent entries: %w", err)
		}
		for _, entry := range entries {
			var debit, credit float64
			for _, line := range entry.Lines {
				debit += line.Debit
				credit += line.Credit
			}
			if math.Abs(debit-credit) > entryBalanceTolerance {
				res.unbalanced = append(res.unbalanced, entry)
			}
		}
		return nil
	})
	g.Go(func() error {
		has, err := s.repo.HasYearCovering(gctx, companyID, now)
		if err != nil {
			return fmt.Errorf("auditor: fiscal year: %w", err)
		}
		res.hasCurrentYear = has
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.PendingDepreciationCount(gctx, companyID, assets.MonthStart(now))
		if err != nil {
			return fmt.Errorf("auditor: pending depreciation: %w", err)
		}
		res.pendingDep = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := s.assemble(companyID, res, now)
	if s.metrics != nil {
		s.metrics.AuditScore(companyID, report.Score)
	}
	if s.logger != nil {
		s.logger.Info("consistency audit complete",
			slog.Int64("company_id", companyID),
			slog.Int("score", report.Score),
			slog.Int("issues", len(report.Issues)))
	}
	return report, nil
}

func (s *Service) assemble(companyID int64, res results, now time.Time) Report {
	score := 100
	var issues []Issue

	balanced := math.Abs(res.totalDebit-res.totalCredit) < trialBalanceTolerance
	if !balanced {
		score -= deductTrialBalance
		issues = append(issues, Issue{
			Code:        "trial_balance_mismatch",
			Severity:    SeverityCritical,
			Title:       "Trial balance does not balance",
			Description: fmt.Sprintf("Total debits %.2f differ from total credits %.2f.", res.totalDebit, res.totalCredit),
			Action:      &ActionHint{Label: "Review journal", Path: "/ledger/entries"},
		})
	}

	if len(res.mappingSnapshot) == 0 {
		score -= deductMapAbsent
		issues = append(issues, Issue{
			Code:        "account_map_absent",
			Severity:    SeverityCritical,
			Title:       "Account map not configured",
			Description: "No account roles are mapped; every auto-posting flow will fail.",
			Action:      &ActionHint{Label: "Configure mappings", Path: "/settings/account-map"},
		})
	} else {
		for _, role := range mapping.CriticalRoles {
			if _, ok := res.mappingSnapshot[role]; !ok {
				score -= deductMissingRole
				issues = append(issues, Issue{
					Code:        "missing_mapping",
					Severity:    SeverityWarning,
					Title:       fmt.Sprintf("Account role %q is unmapped", role),
					Description: fmt.Sprintf("Flows depending on the %q role will abort until it is assigned.", role),
					Action:      &ActionHint{Label: "Assign account", Path: "/settings/account-map"},
				})
			}
		}
	}

	if res.negativeStock > 0 {
		score -= deductNegativeStock
		issues = append(issues, Issue{
			Code:        "negative_stock",
			Severity:    SeverityWarning,
			Title:       "Negative inventory levels",
			Description: fmt.Sprintf("%d product(s) have stock below zero.", res.negativeStock),
			Count:       res.negativeStock,
			Action:      &ActionHint{Label: "Review inventory", Path: "/inventory"},
		})
	}

	for _, entry := range res.unbalanced {
		score -= deductUnbalancedEntry
		issues = append(issues, Issue{
			Code:        "unbalanced_entry",
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("Journal entry %d is unbalanced", entry.Number),
			Description: "The entry's line debits and credits do not sum to the same total.",
			Action:      &ActionHint{Label: "Inspect entry", Path: fmt.Sprintf("/ledger/entries/%d", entry.ID)},
		})
	}

	if !res.hasCurrentYear {
		score -= deductMissingYear
		issues = append(issues, Issue{
			Code:        "missing_fiscal_year",
			Severity:    SeverityWarning,
			Title:       "No fiscal year covers today",
			Description: "Create a fiscal year spanning the current calendar year so postings are period-gated.",
			Action:      &ActionHint{Label: "Create fiscal year", Path: "/fiscal/years"},
		})
	}

	if res.pendingDep > 0 {
		score -= deductPendingDep
		issues = append(issues, Issue{
			Code:        "pending_depreciation",
			Severity:    SeverityInfo,
			Title:       "Depreciation pending this month",
			Description: fmt.Sprintf("%d active asset(s) have no depreciation recorded this month.", res.pendingDep),
			Count:       res.pendingDep,
			Action:      &ActionHint{Label: "Run depreciation", Path: "/assets/depreciation"},
		})
	}

	if score < 0 {
		score = 0
	}
	return Report{
		CompanyID:   companyID,
		Score:       score,
		IsBalanced:  balanced,
		TotalDebit:  res.totalDebit,
		TotalCredit: res.totalCredit,
		Issues:      issues,
		CheckedAt:   now,
	}
}
