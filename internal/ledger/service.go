package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/shared"
)

// AuditPort records ledger actions to the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PeriodGuard rejects postings dated inside locked or closed fiscal years.
type PeriodGuard interface {
	EnsureOpenForPosting(ctx context.Context, companyID int64, date time.Time) error
}

// EventPublisher announces committed entries outward. Implementations must
// never block or fail the posting; errors are logged and dropped.
type EventPublisher interface {
	EntryPosted(ctx context.Context, entry JournalEntry)
}

// MetricsPort counts commits and rejections.
type MetricsPort interface {
	PostingCommitted(referenceType string)
	PostingRejected(rule string)
}

// Service is the posting engine: it validates a balanced entry and commits
// the header with every line as one atomic unit.
type Service struct {
	repo    Repository
	guard   PeriodGuard
	audit   AuditPort
	events  EventPublisher
	metrics MetricsPort
	now     func() time.Time
}

// NewService constructs the posting engine. Guard, audit, events, and
// metrics may be nil in tests.
func NewService(repo Repository, guard PeriodGuard, audit AuditPort, events EventPublisher, metrics MetricsPort) *Service {
	return &Service{repo: repo, guard: guard, audit: audit, events: events, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and commits a journal entry. All validation happens before
// any persistence side effect; on success the entry is immutable. The
// period guard applies unconditionally, whatever reference type the input
// carries.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	return s.post(ctx, input, true)
}

// PostClosing commits a year-end sweep entry. Closing entries are dated
// inside the year being swept, so the period guard cannot apply; the fiscal
// period manager gates the close itself and is the only caller.
func (s *Service) PostClosing(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if input.ReferenceType != ReferenceYearClosing {
		return JournalEntry{}, fmt.Errorf("ledger: closing path rejects reference type %q", input.ReferenceType)
	}
	return s.post(ctx, input, false)
}

func (s *Service) post(ctx context.Context, input PostingInput, gated bool) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		s.reject(err)
		return JournalEntry{}, err
	}
	if gated && s.guard != nil {
		if err := s.guard.EnsureOpenForPosting(ctx, input.CompanyID, input.Date); err != nil {
			s.reject(err)
			return JournalEntry{}, err
		}
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := validateAccounts(ctx, tx, input); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		s.reject(err)
		return JournalEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.PostingCommitted(string(entry.ReferenceType))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: entry.CompanyID,
			ActorID:   entry.CreatedBy,
			Action:    "journal.post",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":         entry.Number,
				"reference_type": string(entry.ReferenceType),
				"reference_id":   entry.ReferenceID.String(),
				"total_debit":    entry.TotalDebit,
			},
			At: s.now(),
		})
	}
	if s.events != nil {
		s.events.EntryPosted(ctx, entry)
	}
	return entry, nil
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, companyID, entryID)
}

// List returns recent entries, newest first.
func (s *Service) List(ctx context.Context, companyID int64, limit int) ([]JournalEntry, error) {
	return s.repo.List(ctx, companyID, limit)
}

// Reverse posts a mirror-image entry correcting an earlier one. The
// original remains untouched.
func (s *Service) Reverse(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	original, err := s.repo.Get(ctx, input.CompanyID, input.EntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = original.Date
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Reversal of JE %d", original.Number)
	}
	posting := PostingInput{
		CompanyID:     input.CompanyID,
		Date:          date,
		Description:   description,
		ReferenceType: ReferenceReversal,
		ReferenceID:   uuid.New(),
		CreatedBy:     input.ActorID,
		Lines:         reverseLines(original.Lines),
	}
	reversal, err := s.Post(ctx, posting)
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: input.CompanyID,
			ActorID:   input.ActorID,
			Action:    "journal.reverse",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", input.EntryID),
			Meta: map[string]any{
				"reversal_id":     reversal.ID,
				"reversal_number": reversal.Number,
			},
			At: s.now(),
		})
	}
	return reversal, nil
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrUnbalanced):
		s.metrics.PostingRejected("unbalanced")
	case errors.Is(err, ErrAccountNotFound):
		s.metrics.PostingRejected("account_not_found")
	case errors.Is(err, ErrPlaceholderAccount):
		s.metrics.PostingRejected("placeholder_account")
	case errors.Is(err, ErrAccountInactive):
		s.metrics.PostingRejected("account_inactive")
	default:
		s.metrics.PostingRejected("other")
	}
}

func validateAccounts(ctx context.Context, tx TxRepository, input PostingInput) error {
	ids := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if _, ok := seen[line.AccountID]; ok {
			continue
		}
		seen[line.AccountID] = struct{}{}
		ids = append(ids, line.AccountID)
	}
	infos, err := tx.LoadAccounts(ctx, input.CompanyID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		info, ok := infos[id]
		if !ok {
			return fmt.Errorf("%w: account %d", ErrAccountNotFound, id)
		}
		if info.IsPlaceholder {
			return fmt.Errorf("%w: account %s %s", ErrPlaceholderAccount, info.Code, info.Name)
		}
		if !info.IsActive {
			return fmt.Errorf("%w: account %s %s", ErrAccountInactive, info.Code, info.Name)
		}
	}
	return nil
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Note:      line.Note,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Note:      line.Note,
			CreatedAt: ts,
		})
	}
	return out
}
