package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Resolver answers role lookups with a per-company Redis cache in front of
// the repository. Cache keys carry the company id, so one tenant can never
// observe another tenant's assignments.
type Resolver struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver constructs the resolver. Cache may be nil; lookups then go
// straight to the repository.
func NewResolver(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(companyID int64, role AccountRole) string {
	return fmt.Sprintf("mapping:%d:%s", companyID, role)
}

// Resolve returns the mapped account id, or ok=false when the role is unset.
func (r *Resolver) Resolve(ctx context.Context, companyID int64, role AccountRole) (int64, bool, error) {
	if !role.Valid() {
		return 0, false, errors.New("mapping: unknown role")
	}
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey(companyID, role)).Result()
		if err == nil {
			accountID, parseErr := strconv.ParseInt(cached, 10, 64)
			if parseErr == nil {
				return accountID, true, nil
			}
		} else if !errors.Is(err, redis.Nil) && r.logger != nil {
			r.logger.Warn("mapping cache read failed", slog.Any("error", err))
		}
	}
	m, err := r.repo.Get(ctx, companyID, role)
	if err != nil {
		if errors.Is(err, ErrMappingNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey(companyID, role), strconv.FormatInt(m.AccountID, 10), r.ttl).Err(); err != nil && r.logger != nil {
			r.logger.Warn("mapping cache write failed", slog.Any("error", err))
		}
	}
	return m.AccountID, true, nil
}

// ResolveOrFail returns the mapped account id or ErrMappingNotFound naming
// the role. Auto-posting flows must use this form and abort on error rather
// than post a misrouted entry.
func (r *Resolver) ResolveOrFail(ctx context.Context, companyID int64, role AccountRole) (int64, error) {
	accountID, ok, err := r.Resolve(ctx, companyID, role)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: role %q", ErrMappingNotFound, role)
	}
	return accountID, nil
}

// Set assigns a role and invalidates the cache entry.
func (r *Resolver) Set(ctx context.Context, companyID int64, role AccountRole, accountID int64) error {
	if err := r.repo.Set(ctx, companyID, role, accountID); err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Del(ctx, cacheKey(companyID, role)).Err(); err != nil && r.logger != nil {
			r.logger.Warn("mapping cache invalidation failed", slog.Any("error", err))
		}
	}
	return nil
}

// Snapshot returns the full assignment set for a company, keyed by role.
// The consistency auditor reads this to flag missing critical roles.
func (r *Resolver) Snapshot(ctx context.Context, companyID int64) (map[AccountRole]int64, error) {
	mappings, err := r.repo.GetAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[AccountRole]int64, len(mappings))
	for _, m := range mappings {
		snapshot[m.Role] = m.AccountID
	}
	return snapshot, nil
}
