package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/mapping"
)

// RoleResolver resolves semantic account roles for a company. An unset
// required role must abort the flow, never fall back to a default account.
type RoleResolver interface {
	ResolveOrFail(ctx context.Context, companyID int64, role mapping.AccountRole) (int64, error)
}

// AutoPoster drives the convenience flows that turn simple business events
// (cash income, cash expense, tax settlement) into balanced entries against
// mapped accounts.
type AutoPoster struct {
	poster   *Service
	resolver RoleResolver
}

// NewAutoPoster wires the auto-posting flows.
func NewAutoPoster(poster *Service, resolver RoleResolver) *AutoPoster {
	return &AutoPoster{poster: poster, resolver: resolver}
}

// CashFlowInput describes a simple single-amount business event.
type CashFlowInput struct {
	CompanyID   int64
	Date        time.Time
	Amount      float64
	Description string
	ActorID     int64
}

func (in CashFlowInput) validate() error {
	if in.CompanyID == 0 {
		return errors.New("ledger: company required")
	}
	if in.Amount <= 0 {
		return errors.New("ledger: amount must be positive")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	return nil
}

// RecordCashIncome debits cash and credits sales revenue. Resolution
// failures abort the flow before anything is written.
func (p *AutoPoster) RecordCashIncome(ctx context.Context, in CashFlowInput) (JournalEntry, error) {
	if err := in.validate(); err != nil {
		return JournalEntry{}, err
	}
	cashID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleCash)
	if err != nil {
		return JournalEntry{}, err
	}
	revenueID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleSalesRevenue)
	if err != nil {
		return JournalEntry{}, err
	}
	return p.poster.Post(ctx, PostingInput{
		CompanyID:     in.CompanyID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: ReferenceCashIncome,
		ReferenceID:   uuid.New(),
		CreatedBy:     in.ActorID,
		Lines: []PostingLineInput{
			{AccountID: cashID, Debit: in.Amount, Note: in.Description},
			{AccountID: revenueID, Credit: in.Amount, Note: in.Description},
		},
	})
}

// RecordCashExpense debits the default expense account and credits cash.
func (p *AutoPoster) RecordCashExpense(ctx context.Context, in CashFlowInput) (JournalEntry, error) {
	if err := in.validate(); err != nil {
		return JournalEntry{}, err
	}
	expenseID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleDefaultExpense)
	if err != nil {
		return JournalEntry{}, err
	}
	cashID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleCash)
	if err != nil {
		return JournalEntry{}, err
	}
	return p.poster.Post(ctx, PostingInput{
		CompanyID:     in.CompanyID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: ReferenceCashExpense,
		ReferenceID:   uuid.New(),
		CreatedBy:     in.ActorID,
		Lines: []PostingLineInput{
			{AccountID: expenseID, Debit: in.Amount, Note: in.Description},
			{AccountID: cashID, Credit: in.Amount, Note: in.Description},
		},
	})
}

// SettleTax debits tax payable and credits the bank account for a filed
// tax return payment.
func (p *AutoPoster) SettleTax(ctx context.Context, in CashFlowInput) (JournalEntry, error) {
	if err := in.validate(); err != nil {
		return JournalEntry{}, err
	}
	taxID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleTaxPayable)
	if err != nil {
		return JournalEntry{}, err
	}
	bankID, err := p.resolver.ResolveOrFail(ctx, in.CompanyID, mapping.RoleBank)
	if err != nil {
		return JournalEntry{}, err
	}
	return p.poster.Post(ctx, PostingInput{
		CompanyID:     in.CompanyID,
		Date:          in.Date,
		Description:   in.Description,
		ReferenceType: ReferenceTaxReturn,
		ReferenceID:   uuid.New(),
		CreatedBy:     in.ActorID,
		Lines: []PostingLineInput{
			{AccountID: taxID, Debit: in.Amount, Note: in.Description},
			{AccountID: bankID, Credit: in.Amount, Note: in.Description},
		},
	})
}
