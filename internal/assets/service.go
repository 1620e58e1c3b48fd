package assets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/shared"
)

// PostingPort posts the compound depreciation entry through the ledger engine.
type PostingPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AuditPort records depreciation runs.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DepreciationRun summarises one scheduler execution.
type DepreciationRun struct {
	Count       int
	TotalAmount float64
	EntryID     int64
}

// Service runs straight-line depreciation and manages asset status.
type Service struct {
	repo   Repository
	poster PostingPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the depreciation scheduler.
func NewService(repo Repository, poster PostingPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, poster: poster, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns a single asset.
func (s *Service) Get(ctx context.Context, companyID, assetID int64) (FixedAsset, error) {
	return s.repo.Get(ctx, companyID, assetID)
}

// ListActive returns the company's active assets.
func (s *Service) ListActive(ctx context.Context, companyID int64) ([]FixedAsset, error) {
	return s.repo.ListActive(ctx, companyID)
}

// RunMonthlyDepreciation posts one compound entry covering every asset due
// this month and then updates asset state. Assets already depreciated for
// the month are excluded, so re-running for the same period is a no-op.
// Each asset keeps its own debit/credit line pair for audit traceability.
func (s *Service) RunMonthlyDepreciation(ctx context.Context, companyID int64, asOf time.Time, actorID int64) (DepreciationRun, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	candidates, err := s.repo.ListActive(ctx, companyID)
	if err != nil {
		return DepreciationRun{}, err
	}

	type charge struct {
		asset  FixedAsset
		amount float64
	}
	var charges []charge
	var lines []ledger.PostingLineInput
	var total float64
	for _, asset := range candidates {
		if asset.DepreciatedForMonth(asOf) {
			continue
		}
		amount := asset.MonthlyDepreciation()
		if amount <= skipThreshold {
			continue
		}
		if asset.ExpenseAccountID == 0 || asset.AccumDepAccountID == 0 {
			return DepreciationRun{}, fmt.Errorf("%w: asset %d", ErrAccountLinksMissing, asset.ID)
		}
		note := fmt.Sprintf("Depreciation %s (%s)", asset.Name, asOf.Format("2006-01"))
		lines = append(lines,
			ledger.PostingLineInput{AccountID: asset.ExpenseAccountID, Debit: amount, Note: note},
			ledger.PostingLineInput{AccountID: asset.AccumDepAccountID, Credit: amount, Note: note},
		)
		charges = append(charges, charge{asset: asset, amount: amount})
		total += amount
	}
	if len(charges) == 0 {
		return DepreciationRun{}, nil
	}

	entry, err := s.poster.Post(ctx, ledger.PostingInput{
		CompanyID:     companyID,
		Date:          asOf,
		Description:   fmt.Sprintf("Monthly depreciation %s", asOf.Format("2006-01")),
		ReferenceType: ledger.ReferenceDepreciation,
		ReferenceID:   uuid.New(),
		CreatedBy:     actorID,
		Lines:         lines,
	})
	if err != nil {
		// Posting failed, so no asset state changes either.
		return DepreciationRun{}, err
	}

	for _, c := range charges {
		if err := s.repo.ApplyDepreciation(ctx, companyID, c.asset.ID, c.amount, asOf); err != nil {
			// The entry is committed; surface the partial update instead of
			// hiding it behind a retry.
			return DepreciationRun{}, fmt.Errorf("assets: apply depreciation for asset %d after entry %d: %w", c.asset.ID, entry.ID, err)
		}
	}

	if s.logger != nil {
		s.logger.Info("depreciation run complete",
			slog.Int64("company_id", companyID),
			slog.Int("assets", len(charges)),
			slog.Float64("total", total),
			slog.Int64("entry_id", entry.ID))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "assets.depreciate",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", entry.ID),
			Meta:      map[string]any{"assets": len(charges), "total": total},
			At:        s.now(),
		})
	}
	return DepreciationRun{Count: len(charges), TotalAmount: total, EntryID: entry.ID}, nil
}

// Dispose marks an active asset as disposed.
func (s *Service) Dispose(ctx context.Context, companyID, assetID int64) error {
	return s.transition(ctx, companyID, assetID, AssetStatusDisposed)
}

// Sell marks an active asset as sold.
func (s *Service) Sell(ctx context.Context, companyID, assetID int64) error {
	return s.transition(ctx, companyID, assetID, AssetStatusSold)
}

func (s *Service) transition(ctx context.Context, companyID, assetID int64, status AssetStatus) error {
	asset, err := s.repo.Get(ctx, companyID, assetID)
	if err != nil {
		return err
	}
	if asset.Status != AssetStatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, asset.Status, status)
	}
	return s.repo.UpdateStatus(ctx, companyID, assetID, status)
}
