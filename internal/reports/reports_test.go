package reports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTrialBalanceGroupsByCodePrefix(t *testing.T) {
	balances := []AccountBalance{
		{AccountID: 3, Code: "1200", Name: "Bank", Type: "ASSET", Opening: 100, Debit: 400, Credit: 150},
		{AccountID: 1, Code: "1100", Name: "Cash", Type: "ASSET", Debit: 250, Credit: 50},
		{AccountID: 5, Code: "4100", Name: "Sales", Type: "REVENUE", Credit: 450},
	}

	tb := BuildTrialBalance(balances)
	require.Len(t, tb.Groups, 3)
	// Keys sort ascending and rows sort by code inside a group.
	require.Equal(t, "11", tb.Groups[0].Key)
	require.Equal(t, "12", tb.Groups[1].Key)
	require.Equal(t, "41", tb.Groups[2].Key)
	require.Equal(t, "1100", tb.Groups[0].Accounts[0].Code)

	require.Equal(t, 650.0, tb.TotalDebit)
	require.Equal(t, 650.0, tb.TotalCredit)
	require.Equal(t, 100.0, tb.TotalOpening)
	require.Equal(t, 100.0, tb.TotalClosing)
}

func TestBuildTrialBalanceDottedCodesGroupOnPrefix(t *testing.T) {
	balances := []AccountBalance{
		{Code: "110.01", Name: "Petty cash", Debit: 10},
		{Code: "110.02", Name: "Till", Debit: 20},
		{Code: "210.01", Name: "Trade payables", Credit: 30},
	}

	tb := BuildTrialBalance(balances)
	require.Len(t, tb.Groups, 2)
	require.Equal(t, "110", tb.Groups[0].Key)
	require.Len(t, tb.Groups[0].Accounts, 2)
	require.Equal(t, 30.0, tb.Groups[0].Debit)
	require.Equal(t, "210", tb.Groups[1].Key)
}

func TestAccountBalanceClosing(t *testing.T) {
	acc := AccountBalance{Opening: 100, Debit: 40, Credit: 70}
	require.Equal(t, 70.0, acc.Closing())
}

func TestBuildProfitAndLossSignsAndNetIncome(t *testing.T) {
	balances := []AccountBalance{
		{AccountID: 10, Code: "4100", Name: "Sales", Type: "REVENUE", Credit: 900},
		{AccountID: 11, Code: "4200", Name: "Sales returns", Type: "REVENUE", Debit: 50},
		{AccountID: 20, Code: "5100", Name: "Cost of goods sold", Type: "COGS", Debit: 300},
		{AccountID: 21, Code: "6100", Name: "Rent", Type: "EXPENSE", Debit: 100},
		{AccountID: 30, Code: "1100", Name: "Cash", Type: "ASSET", Debit: 999},
	}

	pl := BuildProfitAndLoss(balances)

	require.Len(t, pl.Revenue.Accounts, 2)
	require.Equal(t, 900.0, pl.Revenue.Accounts[0].Amount)
	require.Equal(t, -50.0, pl.Revenue.Accounts[1].Amount, "contra revenue keeps its sign")
	require.Equal(t, 850.0, pl.Revenue.Total)

	require.Len(t, pl.Expense.Accounts, 2)
	require.Equal(t, 400.0, pl.Expense.Total)

	require.Equal(t, 450.0, pl.NetIncome)
}

func TestBuildProfitAndLossIgnoresBalanceSheetAccounts(t *testing.T) {
	pl := BuildProfitAndLoss([]AccountBalance{
		{Code: "1100", Type: "ASSET", Debit: 500},
		{Code: "2100", Type: "LIABILITY", Credit: 500},
	})
	require.Empty(t, pl.Revenue.Accounts)
	require.Empty(t, pl.Expense.Accounts)
	require.Equal(t, 0.0, pl.NetIncome)
}

func TestBuildProfitAndLossNetLoss(t *testing.T) {
	pl := BuildProfitAndLoss([]AccountBalance{
		{Code: "4100", Type: "INCOME", Credit: 200},
		{Code: "6100", Type: "EXPENSE", Debit: 350},
	})
	require.Equal(t, -150.0, pl.NetIncome)
}
