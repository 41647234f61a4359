package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// CachedUserDirectory serves user summaries from the cache and loads all
// misses with a single backend call.
type CachedUserDirectory struct {
	next  domainrepo.UserDirectory
	cache *CacheService
	ttl   time.Duration
}

func NewCachedUserDirectory(next domainrepo.UserDirectory, cache *CacheService, ttl time.Duration) *CachedUserDirectory {
	return &CachedUserDirectory{next: next, cache: cache, ttl: ttl}
}

func (d *CachedUserDirectory) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	result := make(map[uuid.UUID]models.UserSummary, len(ids))
	var misses []uuid.UUID

	for _, id := range dedupeIDs(ids) {
		if v, ok := d.cache.Get(UserCacheKey(id)); ok {
			if u, ok := v.(models.UserSummary); ok {
				result[id] = u
				continue
			}
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := d.next.GetUsersByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, u := range loaded {
		d.cache.Set(UserCacheKey(id), u, d.ttl)
		result[id] = u
	}
	return result, nil
}

// Invalidate drops the cached summary of one user.
func (d *CachedUserDirectory) Invalidate(userID uuid.UUID) {
	d.cache.Delete(UserCacheKey(userID))
}
