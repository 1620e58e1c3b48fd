package accounts

import "time"

// AccountType enumerates CoA categories. The taxonomy is fixed and never
// extended at runtime.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type belongs to the fixed taxonomy.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// Account models a chart of accounts node. Placeholder accounts group
// children and can never receive journal lines.
type Account struct {
	ID            int64
	CompanyID     int64
	Code          string
	Name          string
	Type          AccountType
	ParentID      *int64
	IsPlaceholder bool
	Currency      string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Balance is the derived debit/credit aggregate for one account, read from
// the balance projection rather than recomputed from raw lines.
type Balance struct {
	AccountID     int64
	Code          string
	Name          string
	Type          AccountType
	Currency      string
	Debit         float64
	Credit        float64
	ForeignDebit  float64
	ForeignCredit float64
}

// Net returns the debit-normal net balance.
func (b Balance) Net() float64 {
	return b.Debit - b.Credit
}

// ForeignNet returns the debit-normal net balance in account currency.
func (b Balance) ForeignNet() float64 {
	return b.ForeignDebit - b.ForeignCredit
}
