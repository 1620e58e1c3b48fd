package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceType tags the business process that originated an entry.
type ReferenceType string

const (
	ReferenceManualJournal ReferenceType = "manual_journal"
	ReferenceDepreciation  ReferenceType = "depreciation"
	ReferenceRevaluation   ReferenceType = "revaluation"
	ReferenceAdjustment    ReferenceType = "adjustment"
	ReferenceTaxReturn     ReferenceType = "tax_return"
	ReferenceCashIncome    ReferenceType = "cash_income"
	ReferenceCashExpense   ReferenceType = "cash_expense"
	ReferenceYearClosing   ReferenceType = "year_closing"
	ReferenceReversal      ReferenceType = "reversal"
)

// JournalEntry is an immutable posting header. Corrections are new
// reversing entries; no update path exists once an entry is committed.
type JournalEntry struct {
	ID            int64
	CompanyID     int64
	Number        int64
	Date          time.Time
	Description   string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	CreatedBy     int64
	TotalDebit    float64
	TotalCredit   float64
	CreatedAt     time.Time
	Lines         []JournalLine
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
	Note      string
	CreatedAt time.Time
}

// AccountInfo is the slice of account state the posting engine validates
// against: the account must exist, belong to the company, be active, and
// not be a structural placeholder.
type AccountInfo struct {
	ID            int64
	Code          string
	Name          string
	IsPlaceholder bool
	IsActive      bool
	Currency      string
}
