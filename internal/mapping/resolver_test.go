package mapping

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryMappingRepo struct {
	mappings map[int64]map[AccountRole]int64
	getCalls int
}

func newMemoryMappingRepo() *memoryMappingRepo {
	return &memoryMappingRepo{mappings: make(map[int64]map[AccountRole]int64)}
}

func (r *memoryMappingRepo) Get(ctx context.Context, companyID int64, role AccountRole) (AccountMapping, error) {
	r.getCalls++
	accountID, ok := r.mappings[companyID][role]
	if !ok {
		return AccountMapping{}, ErrMappingNotFound
	}
	return AccountMapping{CompanyID: companyID, Role: role, AccountID: accountID}, nil
}

func (r *memoryMappingRepo) GetAll(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	var out []AccountMapping
	for role, accountID := range r.mappings[companyID] {
		out = append(out, AccountMapping{CompanyID: companyID, Role: role, AccountID: accountID})
	}
	return out, nil
}

func (r *memoryMappingRepo) Set(ctx context.Context, companyID int64, role AccountRole, accountID int64) error {
	if r.mappings[companyID] == nil {
		r.mappings[companyID] = make(map[AccountRole]int64)
	}
	r.mappings[companyID][role] = accountID
	return nil
}

func testResolver(t *testing.T) (*Resolver, *memoryMappingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMemoryMappingRepo()
	return NewResolver(repo, client, time.Minute, nil), repo, mr
}

func TestResolveCachesRepositoryHit(t *testing.T) {
	resolver, repo, _ := testResolver(t)
	require.NoError(t, repo.Set(context.Background(), 1, RoleCash, 11))
	repo.getCalls = 0

	accountID, ok, err := resolver.Resolve(context.Background(), 1, RoleCash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(11), accountID)
	require.Equal(t, 1, repo.getCalls)

	accountID, ok, err = resolver.Resolve(context.Background(), 1, RoleCash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(11), accountID)
	require.Equal(t, 1, repo.getCalls, "second lookup must come from cache")
}

func TestResolveUnsetRoleIsExplicitMiss(t *testing.T) {
	resolver, _, _ := testResolver(t)

	_, ok, err := resolver.Resolve(context.Background(), 1, RoleFXGainLoss)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = resolver.ResolveOrFail(context.Background(), 1, RoleFXGainLoss)
	require.ErrorIs(t, err, ErrMappingNotFound)
	require.Contains(t, err.Error(), string(RoleFXGainLoss))
}

func TestResolveIsolatedPerCompany(t *testing.T) {
	resolver, repo, _ := testResolver(t)
	require.NoError(t, repo.Set(context.Background(), 1, RoleCash, 11))
	require.NoError(t, repo.Set(context.Background(), 2, RoleCash, 22))

	first, _, err := resolver.Resolve(context.Background(), 1, RoleCash)
	require.NoError(t, err)
	second, _, err := resolver.Resolve(context.Background(), 2, RoleCash)
	require.NoError(t, err)
	require.Equal(t, int64(11), first)
	require.Equal(t, int64(22), second)

	// Warm caches must stay separated too.
	first, _, err = resolver.Resolve(context.Background(), 1, RoleCash)
	require.NoError(t, err)
	require.Equal(t, int64(11), first)
}

func TestSetInvalidatesCache(t *testing.T) {
	resolver, repo, _ := testResolver(t)
	require.NoError(t, repo.Set(context.Background(), 1, RoleBank, 5))

	accountID, _, err := resolver.Resolve(context.Background(), 1, RoleBank)
	require.NoError(t, err)
	require.Equal(t, int64(5), accountID)

	require.NoError(t, resolver.Set(context.Background(), 1, RoleBank, 6))

	accountID, _, err = resolver.Resolve(context.Background(), 1, RoleBank)
	require.NoError(t, err)
	require.Equal(t, int64(6), accountID)
}

func TestSnapshotListsAssignments(t *testing.T) {
	resolver, repo, _ := testResolver(t)
	require.NoError(t, repo.Set(context.Background(), 1, RoleCash, 11))
	require.NoError(t, repo.Set(context.Background(), 1, RoleSalesRevenue, 12))

	snapshot, err := resolver.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, map[AccountRole]int64{RoleCash: 11, RoleSalesRevenue: 12}, snapshot)
}

func TestRoleTaxonomy(t *testing.T) {
	for _, role := range AllRoles {
		require.True(t, role.Valid(), string(role))
	}
	require.False(t, AccountRole("petty_cash_2").Valid())
	for _, role := range CriticalRoles {
		require.True(t, role.Valid(), string(role))
	}
}
