package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clearbooks/clearbooks/internal/mapping"
)

type stubResolver struct {
	roles map[mapping.AccountRole]int64
}

func (r stubResolver) ResolveOrFail(ctx context.Context, companyID int64, role mapping.AccountRole) (int64, error) {
	id, ok := r.roles[role]
	if !ok {
		return 0, fmt.Errorf("%w: role %q", mapping.ErrMappingNotFound, role)
	}
	return id, nil
}

func cashFlowFixture() CashFlowInput {
	return CashFlowInput{
		CompanyID:   1,
		Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Amount:      500,
		Description: "walk-in sale",
		ActorID:     3,
	}
}

func TestRecordCashIncomePostsBalancedPair(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)
	auto := NewAutoPoster(service, stubResolver{roles: map[mapping.AccountRole]int64{
		mapping.RoleCash:         20,
		mapping.RoleSalesRevenue: 10,
	}})

	entry, err := auto.RecordCashIncome(context.Background(), cashFlowFixture())
	require.NoError(t, err)
	require.Equal(t, ReferenceCashIncome, entry.ReferenceType)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(20), entry.Lines[0].AccountID)
	require.Equal(t, 500.0, entry.Lines[0].Debit)
	require.Equal(t, int64(10), entry.Lines[1].AccountID)
	require.Equal(t, 500.0, entry.Lines[1].Credit)
}

func TestRecordCashIncomeMissingMappingWritesNothing(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)
	auto := NewAutoPoster(service, stubResolver{roles: map[mapping.AccountRole]int64{
		mapping.RoleCash: 20,
	}})

	_, err := auto.RecordCashIncome(context.Background(), cashFlowFixture())
	require.ErrorIs(t, err, mapping.ErrMappingNotFound)
	require.Empty(t, repo.entries)
}

func TestRecordCashExpenseCreditsCash(t *testing.T) {
	repo := seededRepo()
	service := NewService(repo, nil, nil, nil, nil)
	auto := NewAutoPoster(service, stubResolver{roles: map[mapping.AccountRole]int64{
		mapping.RoleCash:           20,
		mapping.RoleDefaultExpense: 10,
	}})

	entry, err := auto.RecordCashExpense(context.Background(), cashFlowFixture())
	require.NoError(t, err)
	require.Equal(t, ReferenceCashExpense, entry.ReferenceType)
	require.Equal(t, 500.0, entry.Lines[0].Debit)
	require.Equal(t, int64(20), entry.Lines[1].AccountID)
	require.Equal(t, 500.0, entry.Lines[1].Credit)
}

func TestCashFlowInputRejectsNonPositiveAmount(t *testing.T) {
	auto := NewAutoPoster(NewService(seededRepo(), nil, nil, nil, nil), stubResolver{})

	in := cashFlowFixture()
	in.Amount = 0
	_, err := auto.RecordCashIncome(context.Background(), in)
	require.Error(t, err)

	in.Amount = -3
	_, err = auto.RecordCashExpense(context.Background(), in)
	require.Error(t, err)
}
