package fiscal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/accounts"
	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/reports"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// IncomeSource provides revenue/expense balances for a date range, read
// from the income statement projection.
type IncomeSource interface {
	IncomeStatement(ctx context.Context, companyID int64, from, to time.Time) ([]reports.AccountBalance, error)
}

// RoleResolver resolves semantic account roles.
type RoleResolver interface {
	Resolve(ctx context.Context, companyID int64, role mapping.AccountRole) (int64, bool, error)
}

// AccountFinder supports the legacy name-search fallback for retained
// earnings. Best effort only; the mapping role is the supported path.
type AccountFinder interface {
	FindByNameLike(ctx context.Context, companyID int64, fragment string) ([]accounts.Account, error)
}

// PostingPort books the closing entry through the ledger engine's closing
// path, which is exempt from the period guard.
type PostingPort interface {
	PostClosing(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AuditPort records fiscal actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the fiscal year lifecycle and gates ledger postings.
type Service struct {
	repo         Repository
	income       IncomeSource
	resolver     RoleResolver
	finder       AccountFinder
	poster       PostingPort
	audit        AuditPort
	logger       *slog.Logger
	nameFallback bool
	now          func() time.Time
}

// NewService constructs the fiscal period manager. When nameFallback is set,
// closing may fall back to a name search for the retained earnings account.
func NewService(repo Repository, income IncomeSource, resolver RoleResolver, finder AccountFinder, poster PostingPort, audit AuditPort, logger *slog.Logger, nameFallback bool) *Service {
	return &Service{
		repo:         repo,
		income:       income,
		resolver:     resolver,
		finder:       finder,
		poster:       poster,
		audit:        audit,
		logger:       logger,
		nameFallback: nameFallback,
		now:          time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns the company's fiscal years, newest first.
func (s *Service) List(ctx context.Context, companyID int64) ([]FiscalYear, error) {
	return s.repo.List(ctx, companyID)
}

// Get returns a single fiscal year.
func (s *Service) Get(ctx context.Context, companyID, yearID int64) (FiscalYear, error) {
	return s.repo.Get(ctx, companyID, yearID)
}

// Create inserts a new open fiscal year after checking range overlap.
func (s *Service) Create(ctx context.Context, in CreateYearInput) (FiscalYear, error) {
	if err := in.Validate(); err != nil {
		return FiscalYear{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.CompanyID, in.StartDate, in.EndDate)
	if err != nil {
		return FiscalYear{}, err
	}
	if conflict {
		return FiscalYear{}, ErrYearOverlap
	}
	return s.repo.Insert(ctx, in)
}

// Lock transitions a year from OPEN to LOCKED. Locked years reject new
// postings but have not yet been swept.
func (s *Service) Lock(ctx context.Context, companyID, yearID, actorID int64) (FiscalYear, error) {
	year, err := s.repo.Get(ctx, companyID, yearID)
	if err != nil {
		return FiscalYear{}, err
	}
	if year.Status != YearStatusOpen {
		return FiscalYear{}, fmt.Errorf("%w: %s -> LOCKED", ErrInvalidTransition, year.Status)
	}
	if err := s.repo.UpdateStatus(ctx, companyID, yearID, YearStatusLocked); err != nil {
		return FiscalYear{}, err
	}
	year.Status = YearStatusLocked
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "fiscal.lock",
			Entity:    "fiscal_year",
			EntityID:  fmt.Sprintf("%d", yearID),
			At:        s.now(),
		})
	}
	return year, nil
}

// Close sweeps the year's net income into retained earnings and marks the
// year CLOSED. The transition is terminal.
func (s *Service) Close(ctx context.Context, companyID, yearID int64, closingDate time.Time, actorID int64) (FiscalYear, error) {
	year, err := s.repo.Get(ctx, companyID, yearID)
	if err != nil {
		return FiscalYear{}, err
	}
	if year.Status == YearStatusClosed {
		return FiscalYear{}, fmt.Errorf("%w: year already closed", ErrInvalidTransition)
	}
	if closingDate.IsZero() {
		closingDate = year.EndDate
	}
	if !year.Contains(closingDate) {
		return FiscalYear{}, errors.New("fiscal: closing date outside year range")
	}

	retainedID, err := s.resolveRetainedEarnings(ctx, companyID)
	if err != nil {
		return FiscalYear{}, err
	}

	lines, err := s.income.IncomeStatement(ctx, companyID, year.StartDate, year.EndDate)
	if err != nil {
		return FiscalYear{}, err
	}
	pl := reports.BuildProfitAndLoss(lines)

	closingLines := buildClosingLines(pl, retainedID)
	if len(closingLines) >= 2 {
		_, err = s.poster.PostClosing(ctx, ledger.PostingInput{
			CompanyID:     companyID,
			Date:          closingDate,
			Description:   fmt.Sprintf("Closing entry for %s", year.Name),
			ReferenceType: ledger.ReferenceYearClosing,
			ReferenceID:   uuid.New(),
			CreatedBy:     actorID,
			Lines:         closingLines,
		})
		if err != nil {
			return FiscalYear{}, err
		}
	}

	closedAt := s.now()
	if err := s.repo.MarkClosed(ctx, companyID, yearID, closedAt, actorID, pl.NetIncome); err != nil {
		return FiscalYear{}, err
	}
	year.Status = YearStatusClosed
	year.ClosedAt = &closedAt
	year.ClosedBy = &actorID
	netIncome := pl.NetIncome
	year.NetIncome = &netIncome
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "fiscal.close",
			Entity:    "fiscal_year",
			EntityID:  fmt.Sprintf("%d", yearID),
			Meta:      map[string]any{"net_income": pl.NetIncome},
			At:        closedAt,
		})
	}
	return year, nil
}

// EnsureOpenForPosting rejects postings dated inside a locked or closed
// year. Dates not covered by any fiscal year pass; the auditor flags the
// missing year instead.
func (s *Service) EnsureOpenForPosting(ctx context.Context, companyID int64, date time.Time) error {
	year, err := s.repo.FindByDate(ctx, companyID, date)
	if err != nil {
		if errors.Is(err, ErrYearNotFound) {
			return nil
		}
		return err
	}
	switch year.Status {
	case YearStatusLocked:
		return ErrPeriodLocked
	case YearStatusClosed:
		return ErrPeriodClosed
	}
	return nil
}

func (s *Service) resolveRetainedEarnings(ctx context.Context, companyID int64) (int64, error) {
	accountID, ok, err := s.resolver.Resolve(ctx, companyID, mapping.RoleRetainedEarnings)
	if err != nil {
		return 0, err
	}
	if ok {
		return accountID, nil
	}
	if !s.nameFallback || s.finder == nil {
		return 0, ErrNoRetainedEarnings
	}
	// Legacy compatibility path: search the chart by name. Best effort, and
	// loudly logged so the missing mapping gets fixed.
	matches, err := s.finder.FindByNameLike(ctx, companyID, "retained earnings")
	if err != nil {
		return 0, err
	}
	for _, account := range matches {
		if account.Type == accounts.AccountTypeEquity && !account.IsPlaceholder {
			if s.logger != nil {
				s.logger.Warn("retained earnings resolved by name search, set the mapping role",
					slog.Int64("company_id", companyID),
					slog.String("account", account.Name))
			}
			return account.ID, nil
		}
	}
	return 0, ErrNoRetainedEarnings
}

// buildClosingLines zeroes every revenue and expense balance and books the
// residual net income against retained earnings. The entry balances by
// construction.
func buildClosingLines(pl reports.ProfitAndLoss, retainedID int64) []ledger.PostingLineInput {
	var lines []ledger.PostingLineInput
	for _, row := range pl.Revenue.Accounts {
		if math.Abs(row.Amount) < 0.01 {
			continue
		}
		line := ledger.PostingLineInput{AccountID: row.AccountID, Note: closingNote(row.Name)}
		if row.Amount > 0 {
			line.Debit = row.Amount
		} else {
			line.Credit = -row.Amount
		}
		lines = append(lines, line)
	}
	for _, row := range pl.Expense.Accounts {
		if math.Abs(row.Amount) < 0.01 {
			continue
		}
		line := ledger.PostingLineInput{AccountID: row.AccountID, Note: closingNote(row.Name)}
		if row.Amount > 0 {
			line.Credit = row.Amount
		} else {
			line.Debit = -row.Amount
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}
	residual := pl.NetIncome
	if math.Abs(residual) >= 0.01 {
		line := ledger.PostingLineInput{AccountID: retainedID, Note: "Net income to retained earnings"}
		if residual > 0 {
			line.Credit = residual
		} else {
			line.Debit = -residual
		}
		lines = append(lines, line)
	}
	return lines
}

func closingNote(name string) string {
	return "Close " + strings.TrimSpace(name)
}
