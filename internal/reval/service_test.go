package reval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clearbooks/clearbooks/internal/accounts"
	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/shared"
)

type stubBalances struct {
	account accounts.Account
	balance accounts.Balance
}

func (s stubBalances) Get(ctx context.Context, companyID, accountID int64) (accounts.Account, error) {
	if s.account.ID == 0 {
		return accounts.Account{}, shared.ErrNotFound
	}
	return s.account, nil
}

func (s stubBalances) Balance(ctx context.Context, companyID, accountID int64) (accounts.Balance, error) {
	return s.balance, nil
}

type stubRoleResolver struct {
	gainLossID int64
	err        error
}

func (s stubRoleResolver) ResolveOrFail(ctx context.Context, companyID int64, role mapping.AccountRole) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.gainLossID, nil
}

type capturePoster struct {
	inputs []ledger.PostingInput
}

func (p *capturePoster) Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error) {
	p.inputs = append(p.inputs, input)
	return ledger.JournalEntry{ID: int64(len(p.inputs)), ReferenceType: input.ReferenceType}, nil
}

func eurBankFixture() stubBalances {
	return stubBalances{
		account: accounts.Account{ID: 5, CompanyID: 1, Code: "1210", Name: "Bank EUR", Type: accounts.AccountTypeAsset, Currency: "EUR", IsActive: true},
		balance: accounts.Balance{AccountID: 5, Currency: "EUR", Debit: 370, ForeignDebit: 100},
	}
}

func TestCalculateRevaluationDiff(t *testing.T) {
	service := NewService(eurBankFixture(), stubRoleResolver{gainLossID: 40}, &capturePoster{}, "USD", nil)

	result, err := service.Calculate(context.Background(), 1, 5, 3.80)
	require.NoError(t, err)
	require.Equal(t, 100.0, result.ForeignBalance)
	require.Equal(t, 370.0, result.BookBalanceBase)
	require.Equal(t, 380.0, result.TargetBaseBalance)
	require.InDelta(t, 10.0, result.Diff, 0.0001)
}

func TestCalculateRejectsBaseCurrencyAccount(t *testing.T) {
	fixture := eurBankFixture()
	fixture.account.Currency = "USD"
	service := NewService(fixture, stubRoleResolver{gainLossID: 40}, &capturePoster{}, "USD", nil)

	_, err := service.Calculate(context.Background(), 1, 5, 3.80)
	require.ErrorIs(t, err, ErrNotForeignCurrency)
}

func TestCalculateRejectsNonPositiveRate(t *testing.T) {
	service := NewService(eurBankFixture(), stubRoleResolver{gainLossID: 40}, &capturePoster{}, "USD", nil)

	_, err := service.Calculate(context.Background(), 1, 5, 0)
	require.ErrorIs(t, err, ErrInvalidRate)
	_, err = service.Calculate(context.Background(), 1, 5, -1.2)
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestPostGainDebitsAccountCreditsGainLoss(t *testing.T) {
	poster := &capturePoster{}
	service := NewService(eurBankFixture(), stubRoleResolver{gainLossID: 40}, poster, "USD", nil)
	service.WithNow(func() time.Time { return time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC) })

	result, err := service.Post(context.Background(), 1, 5, 3.80, 9)
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Diff, 0.0001)

	require.Len(t, poster.inputs, 1)
	input := poster.inputs[0]
	require.Equal(t, ledger.ReferenceRevaluation, input.ReferenceType)
	require.Len(t, input.Lines, 2)
	require.Equal(t, int64(5), input.Lines[0].AccountID)
	require.InDelta(t, 10.0, input.Lines[0].Debit, 0.0001)
	require.Equal(t, int64(40), input.Lines[1].AccountID)
	require.InDelta(t, 10.0, input.Lines[1].Credit, 0.0001)
}

func TestPostLossMirrorsLines(t *testing.T) {
	fixture := eurBankFixture()
	fixture.balance.Debit = 390
	poster := &capturePoster{}
	service := NewService(fixture, stubRoleResolver{gainLossID: 40}, poster, "USD", nil)

	result, err := service.Post(context.Background(), 1, 5, 3.80, 9)
	require.NoError(t, err)
	require.InDelta(t, -10.0, result.Diff, 0.0001)

	require.Len(t, poster.inputs, 1)
	input := poster.inputs[0]
	require.Equal(t, int64(40), input.Lines[0].AccountID)
	require.InDelta(t, 10.0, input.Lines[0].Debit, 0.0001)
	require.Equal(t, int64(5), input.Lines[1].AccountID)
	require.InDelta(t, 10.0, input.Lines[1].Credit, 0.0001)
}

func TestPostSkipsNegligibleDiff(t *testing.T) {
	fixture := eurBankFixture()
	fixture.balance.Debit = 379.995
	fixture.balance.ForeignDebit = 100
	poster := &capturePoster{}
	service := NewService(fixture, stubRoleResolver{gainLossID: 40}, poster, "USD", nil)

	result, err := service.Post(context.Background(), 1, 5, 3.80, 9)
	require.NoError(t, err)
	require.Less(t, result.Diff, 0.01)
	require.Empty(t, poster.inputs, "no entry for sub-threshold differences")
}

func TestPostAbortsWhenGainLossUnmapped(t *testing.T) {
	poster := &capturePoster{}
	service := NewService(eurBankFixture(), stubRoleResolver{err: mapping.ErrMappingNotFound}, poster, "USD", nil)

	_, err := service.Post(context.Background(), 1, 5, 3.80, 9)
	require.ErrorIs(t, err, mapping.ErrMappingNotFound)
	require.Empty(t, poster.inputs)
}
