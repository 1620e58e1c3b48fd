package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryLedgerRepo struct {
	accounts map[int64]map[int64]AccountInfo
	entries  map[int64]JournalEntry
	nextID   int64
	number   int64

	failLines bool
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts: make(map[int64]map[int64]AccountInfo),
		entries:  make(map[int64]JournalEntry),
	}
}

func (r *memoryLedgerRepo) addAccount(companyID int64, info AccountInfo) {
	if r.accounts[companyID] == nil {
		r.accounts[companyID] = make(map[int64]AccountInfo)
	}
	r.accounts[companyID][info.ID] = info
}

func (r *memoryLedgerRepo) Get(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	entry, ok := r.entries[entryID]
	if !ok || entry.CompanyID != companyID {
		return JournalEntry{}, ErrEntryNotFound
	}
	return entry, nil
}

func (r *memoryLedgerRepo) List(ctx context.Context, companyID int64, limit int) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, entry := range r.entries {
		if entry.CompanyID == companyID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryLedgerTx{repo: r}
	if err := fn(ctx, tx); err != nil {
		if tx.insertedID != 0 {
			delete(r.entries, tx.insertedID)
			r.nextID--
			r.number--
		}
		return err
	}
	if tx.insertedID != 0 {
		entry := r.entries[tx.insertedID]
		entry.Lines = tx.lines
		r.entries[tx.insertedID] = entry
	}
	return nil
}

type memoryLedgerTx struct {
	repo       *memoryLedgerRepo
	insertedID int64
	lines      []JournalLine
}

func (tx *memoryLedgerTx) LoadAccounts(ctx context.Context, companyID int64, ids []int64) (map[int64]AccountInfo, error) {
	result := make(map[int64]AccountInfo)
	for _, id := range ids {
		if info, ok := tx.repo.accounts[companyID][id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func (tx *memoryLedgerTx) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	tx.repo.nextID++
	tx.repo.number++
	debit, credit := in.Totals()
	entry := JournalEntry{
		ID:            tx.repo.nextID,
		CompanyID:     in.CompanyID,
		Number:        tx.repo.number,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		CreatedBy:     in.CreatedBy,
		TotalDebit:    debit,
		TotalCredit:   credit,
	}
	tx.repo.entries[entry.ID] = entry
	tx.insertedID = entry.ID
	return entry, nil
}

func (tx *memoryLedgerTx) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	if tx.repo.failLines {
		return errors.New("insert lines: connection reset")
	}
	for _, line := range lines {
		tx.lines = append(tx.lines, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Note:      line.Note,
		})
	}
	return nil
}

type stubGuard struct {
	err error
}

func (g stubGuard) EnsureOpenForPosting(ctx context.Context, companyID int64, date time.Time) error {
	return g.err
}

type recordingMetrics struct {
	committed []string
	rejected  []string
}

func (m *recordingMetrics) PostingCommitted(referenceType string) {
	m.committed = append(m.committed, referenceType)
}

func (m *recordingMetrics) PostingRejected(rule string) {
	m.rejected = append(m.rejected, rule)
}

func postingFixture(companyID int64) PostingInput {
	return PostingInput{
		CompanyID:     companyID,
		Date:          time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description:   "office supplies",
		ReferenceType: ReferenceManualJournal,
		ReferenceID:   uuid.New(),
		CreatedBy:     7,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 150},
			{AccountID: 20, Credit: 150},
		},
	}
}

func seededRepo() *memoryLedgerRepo {
	repo := newMemoryLedgerRepo()
	repo.addAccount(1, AccountInfo{ID: 10, Code: "6100", Name: "Supplies Expense", IsActive: true})
	repo.addAccount(1, AccountInfo{ID: 20, Code: "1100", Name: "Cash", IsActive: true})
	repo.addAccount(1, AccountInfo{ID: 30, Code: "6000", Name: "Expenses", IsPlaceholder: true, IsActive: true})
	return repo
}

func TestPostCommitsBalancedEntry(t *testing.T) {
	repo := seededRepo()
	metrics := &recordingMetrics{}
	service := NewService(repo, nil, nil, nil, metrics)

	entry, err := service.Post(context.Background(), postingFixture(1))
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.Equal(t, 150.0, entry.TotalDebit)
	require.Equal(t, 150.0, entry.TotalCredit)
	require.Len(t, entry.Lines, 2)

	stored, err := service.Get(context.Background(), 1, entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry.Number, stored.Number)
	require.Len(t, stored.Lines, 2)
	require.Equal(t, 150.0, stored.Lines[0].Debit)
	require.Equal(t, 150.0, stored.Lines[1].Credit)
	require.Equal(t, []string{"manual_journal"}, metrics.committed)
}

func TestPostRejectsUnbalancedEntry(t *testing.T) {
	repo := seededRepo()
	metrics := &recordingMetrics{}
	service := NewService(repo, nil, nil, nil, metrics)

	input := postingFixture(1)
	input.Lines[1].Credit = 149.90

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.entries)
	require.Equal(t, []string{"unbalanced"}, metrics.rejected)
}

func TestPostAcceptsRoundingInsideTolerance(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	input := postingFixture(1)
	input.Lines[1].Credit = 149.995

	_, err := service.Post(context.Background(), input)
	require.NoError(t, err)
}

func TestPostRejectsPlaceholderAccount(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	input := postingFixture(1)
	input.Lines[0].AccountID = 30

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrPlaceholderAccount)
	require.Empty(t, repo.entries)
}

func TestPostRejectsUnknownAccount(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	input := postingFixture(1)
	input.Lines[0].AccountID = 999

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.Empty(t, repo.entries)
}

func TestPostRejectsAccountFromAnotherCompany(t *testing.T) {
	repo := seededRepo()
	repo.addAccount(2, AccountInfo{ID: 40, Code: "1100", Name: "Cash", IsActive: true})
	service := NewService(repo, nil, nil, nil, nil)

	input := postingFixture(1)
	input.Lines[1].AccountID = 40

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPostBlockedByPeriodGuard(t *testing.T) {
	guardErr := errors.New("fiscal: period is locked")
	repo := seededRepo()
	service := NewService(repo, stubGuard{err: guardErr}, nil, nil, nil)

	_, err := service.Post(context.Background(), postingFixture(1))
	require.ErrorIs(t, err, guardErr)
	require.Empty(t, repo.entries)
}

func TestPostGuardAppliesToEveryReferenceType(t *testing.T) {
	guardErr := errors.New("fiscal: period is locked")
	repo := seededRepo()
	service := NewService(repo, stubGuard{err: guardErr}, nil, nil, nil)

	// Tagging the input as a closing entry must not open a side door past
	// the period guard.
	input := postingFixture(1)
	input.ReferenceType = ReferenceYearClosing

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, guardErr)
	require.Empty(t, repo.entries)
}

func TestPostClosingBypassesGuard(t *testing.T) {
	guardErr := errors.New("fiscal: period is locked")
	repo := seededRepo()
	service := NewService(repo, stubGuard{err: guardErr}, nil, nil, nil)

	input := postingFixture(1)
	input.ReferenceType = ReferenceYearClosing

	entry, err := service.PostClosing(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, ReferenceYearClosing, entry.ReferenceType)
}

func TestPostClosingRejectsOtherReferenceTypes(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	_, err := service.PostClosing(context.Background(), postingFixture(1))
	require.Error(t, err)
	require.Empty(t, repo.entries)
}

func TestPostRejectsInactiveAccount(t *testing.T) {
	repo := seededRepo()
	repo.addAccount(1, AccountInfo{ID: 50, Code: "1150", Name: "Old Cash", IsActive: false})
	metrics := &recordingMetrics{}
	service := NewService(repo, nil, nil, nil, metrics)

	input := postingFixture(1)
	input.Lines[1].AccountID = 50

	_, err := service.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrAccountInactive)
	require.Empty(t, repo.entries)
	require.Equal(t, []string{"account_inactive"}, metrics.rejected)
}

func TestPostAtomicityOnLineFailure(t *testing.T) {
	repo := seededRepo()
	repo.failLines = true
	service := NewService(repo, nil, nil, nil, nil)

	_, err := service.Post(context.Background(), postingFixture(1))
	require.Error(t, err)
	require.Empty(t, repo.entries, "header must not survive a failed line insert")
}

func TestReverseMirrorsLines(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	original, err := service.Post(context.Background(), postingFixture(1))
	require.NoError(t, err)

	reversal, err := service.Reverse(context.Background(), ReverseInput{
		CompanyID: 1,
		EntryID:   original.ID,
		ActorID:   9,
	})
	require.NoError(t, err)
	require.Equal(t, ReferenceReversal, reversal.ReferenceType)
	require.Equal(t, "Reversal of JE 1", reversal.Description)
	require.Len(t, reversal.Lines, 2)
	require.Equal(t, original.Lines[0].Debit, reversal.Lines[0].Credit)
	require.Equal(t, original.Lines[1].Credit, reversal.Lines[1].Debit)
	require.Equal(t, original.Date, reversal.Date)

	untouched, err := service.Get(context.Background(), 1, original.ID)
	require.NoError(t, err)
	require.Equal(t, original.TotalDebit, untouched.TotalDebit)
	require.Len(t, untouched.Lines, 2)
}

func TestReverseUnknownEntry(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)

	_, err := service.Reverse(context.Background(), ReverseInput{CompanyID: 1, EntryID: 42})
	require.ErrorIs(t, err, ErrEntryNotFound)
}
