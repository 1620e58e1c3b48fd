package auditor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
)

type stubAuditRepo struct {
	debit, credit float64
	snapshot      map[mapping.AccountRole]int64
	negativeStock int
	entries       []RecentEntry
	hasYear       bool
	pendingDep    int

	entriesLimit int
	monthStart   time.Time
	err          error
}

func (s *stubAuditRepo) TrialBalanceTotals(ctx context.Context, companyID int64) (float64, float64, error) {
	return s.debit, s.credit, s.err
}

func (s *stubAuditRepo) MappingSnapshot(ctx context.Context, companyID int64) (map[mapping.AccountRole]int64, error) {
	return s.snapshot, nil
}

func (s *stubAuditRepo) NegativeStockCount(ctx context.Context, companyID int64) (int, error) {
	return s.negativeStock, nil
}

func (s *stubAuditRepo) RecentEntries(ctx context.Context, companyID int64, limit int) ([]RecentEntry, error) {
	s.entriesLimit = limit
	return s.entries, nil
}

func (s *stubAuditRepo) HasYearCovering(ctx context.Context, companyID int64, date time.Time) (bool, error) {
	return s.hasYear, nil
}

func (s *stubAuditRepo) PendingDepreciationCount(ctx context.Context, companyID int64, monthStart time.Time) (int, error) {
	s.monthStart = monthStart
	return s.pendingDep, nil
}

type recordingScores struct {
	scores map[int64]int
}

func (m *recordingScores) AuditScore(companyID int64, score int) {
	if m.scores == nil {
		m.scores = make(map[int64]int)
	}
	m.scores[companyID] = score
}

func fullSnapshot() map[mapping.AccountRole]int64 {
	snapshot := make(map[mapping.AccountRole]int64)
	for i, role := range mapping.AllRoles {
		snapshot[role] = int64(100 + i)
	}
	return snapshot
}

func healthyRepo() *stubAuditRepo {
	return &stubAuditRepo{
		debit:    5000,
		credit:   5000,
		snapshot: fullSnapshot(),
		hasYear:  true,
	}
}

func auditTime() time.Time {
	return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
}

func TestRunAuditHealthyCompanyScoresFull(t *testing.T) {
	repo := healthyRepo()
	metrics := &recordingScores{}
	service := NewService(repo, metrics, nil, 0)
	service.WithNow(auditTime)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 100, report.Score)
	require.True(t, report.IsBalanced)
	require.Empty(t, report.Issues)
	require.Equal(t, auditTime(), report.CheckedAt)
	require.Equal(t, 100, metrics.scores[1])

	require.Equal(t, defaultEntryScanWindow, repo.entriesLimit)
	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), repo.monthStart)
}

func TestRunAuditTrialBalanceMismatch(t *testing.T) {
	repo := healthyRepo()
	repo.credit = 4995
	service := NewService(repo, nil, nil, 0)
	service.WithNow(auditTime)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 60, report.Score)
	require.False(t, report.IsBalanced)
	require.Len(t, report.Issues, 1)
	require.Equal(t, "trial_balance_mismatch", report.Issues[0].Code)
	require.Equal(t, SeverityCritical, report.Issues[0].Severity)
}

func TestRunAuditToleratesRoundingInTotals(t *testing.T) {
	repo := healthyRepo()
	repo.credit = 5000.05
	service := NewService(repo, nil, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, report.IsBalanced)
	require.Equal(t, 100, report.Score)
}

func TestRunAuditEmptyMappingDeductsOnce(t *testing.T) {
	repo := healthyRepo()
	repo.snapshot = nil
	service := NewService(repo, nil, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 80, report.Score)
	require.Len(t, report.Issues, 1)
	require.Equal(t, "account_map_absent", report.Issues[0].Code)
}

func TestRunAuditMissingCriticalRolesDeductEach(t *testing.T) {
	repo := healthyRepo()
	delete(repo.snapshot, mapping.RoleCash)
	delete(repo.snapshot, mapping.RoleInventory)
	service := NewService(repo, nil, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 90, report.Score)
	require.Len(t, report.Issues, 2)
	for _, issue := range report.Issues {
		require.Equal(t, "missing_mapping", issue.Code)
		require.Equal(t, SeverityWarning, issue.Severity)
	}
}

func TestRunAuditUnbalancedEntriesDeductPerEntry(t *testing.T) {
	repo := healthyRepo()
	repo.entries = []RecentEntry{
		{ID: 7, Number: 7, Lines: []ledger.JournalLine{
			{AccountID: 1, Debit: 100},
			{AccountID: 2, Credit: 90},
		}},
		{ID: 8, Number: 8, Lines: []ledger.JournalLine{
			{AccountID: 1, Debit: 50},
			{AccountID: 2, Credit: 50},
		}},
		{ID: 9, Number: 9, Lines: []ledger.JournalLine{
			{AccountID: 1, Debit: 20},
			{AccountID: 2, Credit: 25},
		}},
	}
	service := NewService(repo, nil, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 80, report.Score)
	require.Len(t, report.Issues, 2)
	require.Equal(t, "unbalanced_entry", report.Issues[0].Code)
	require.Contains(t, report.Issues[0].Title, "7")
	require.Contains(t, report.Issues[1].Title, "9")
}

func TestRunAuditOperationalIssuesAreWarnings(t *testing.T) {
	repo := healthyRepo()
	repo.negativeStock = 3
	repo.hasYear = false
	repo.pendingDep = 4
	service := NewService(repo, nil, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 75, report.Score)
	require.Len(t, report.Issues, 3)

	codes := make([]string, 0, len(report.Issues))
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}
	require.Equal(t, []string{"negative_stock", "missing_fiscal_year", "pending_depreciation"}, codes,
		"issue order is deterministic")
	require.Equal(t, 3, report.Issues[0].Count)
	require.Equal(t, 4, report.Issues[2].Count, "pending depreciation deducts a flat 5 regardless of count")
}

func TestRunAuditDeterministicReport(t *testing.T) {
	build := func() *stubAuditRepo {
		repo := healthyRepo()
		repo.credit = 4995
		delete(repo.snapshot, mapping.RoleCOGS)
		return repo
	}
	service := NewService(build(), nil, nil, 0)
	service.WithNow(auditTime)

	first, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 55, first.Score)

	// Checks run concurrently but the report must come out identical.
	for i := 0; i < 3; i++ {
		again, err := NewService(build(), nil, nil, 0).RunAudit(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, first.Score, again.Score)
		require.Len(t, again.Issues, 2)
		require.Equal(t, "trial_balance_mismatch", again.Issues[0].Code)
		require.Equal(t, "missing_mapping", again.Issues[1].Code)
	}
}

func TestRunAuditScoreClampedAtZero(t *testing.T) {
	repo := &stubAuditRepo{
		debit:         5000,
		credit:        100,
		snapshot:      nil,
		negativeStock: 2,
		hasYear:       false,
		pendingDep:    1,
	}
	for i := 0; i < 5; i++ {
		repo.entries = append(repo.entries, RecentEntry{ID: int64(i + 1), Number: int64(i + 1), Lines: []ledger.JournalLine{
			{AccountID: 1, Debit: 10},
			{AccountID: 2, Credit: 5},
		}})
	}
	metrics := &recordingScores{}
	service := NewService(repo, metrics, nil, 0)

	report, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, report.Score)
	require.Equal(t, 0, metrics.scores[1])
}

func TestRunAuditSurfacesRepositoryFailure(t *testing.T) {
	repo := healthyRepo()
	repo.err = errors.New("connection refused")
	service := NewService(repo, nil, nil, 0)

	_, err := service.RunAudit(context.Background(), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "trial balance")
}

func TestRunAuditHonorsConfiguredWindow(t *testing.T) {
	repo := healthyRepo()
	service := NewService(repo, nil, nil, 25)

	_, err := service.RunAudit(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 25, repo.entriesLimit)
}
