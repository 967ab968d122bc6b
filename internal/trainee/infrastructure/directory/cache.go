package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/pkg/database"
)

// CachedClient decorates a ports.ContactDirectory with a Redis-backed TTL
// cache, the same get-then-fetch-then-set shape as the teacher's
// RedisCache.GetOrSet, so the dispatch worker's per-retry re-reads of the
// same local office's contacts don't refetch the reference-data service on
// every lease.
type CachedClient struct {
	next  ports.ContactDirectory
	redis *database.RedisClient
	ttl   time.Duration
}

// NewCachedClient wraps next with a TTL cache. A zero ttl falls back to
// five minutes.
func NewCachedClient(next ports.ContactDirectory, redis *database.RedisClient, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedClient{next: next, redis: redis, ttl: ttl}
}

// ListContacts serves from cache when present, otherwise fetches from next
// and populates the cache for the configured TTL.
func (c *CachedClient) ListContacts(ctx context.Context, localOffice string) ([]domain.LocalOfficeContact, error) {
	key := fmt.Sprintf("directory:lo:%s", localOffice)
	var cached []domain.LocalOfficeContact
	if err := c.redis.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	contacts, err := c.next.ListContacts(ctx, localOffice)
	if err != nil {
		return nil, err
	}
	_ = c.redis.Set(ctx, key, contacts, c.ttl)
	return contacts, nil
}

// ListTraineeContacts serves from cache when present, otherwise fetches from
// next and populates the cache for the configured TTL.
func (c *CachedClient) ListTraineeContacts(ctx context.Context, traineeID, contactType string) ([]domain.LocalOfficeContact, error) {
	key := fmt.Sprintf("directory:trainee:%s:%s", traineeID, contactType)
	var cached []domain.LocalOfficeContact
	if err := c.redis.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	contacts, err := c.next.ListTraineeContacts(ctx, traineeID, contactType)
	if err != nil {
		return nil, err
	}
	_ = c.redis.Set(ctx, key, contacts, c.ttl)
	return contacts, nil
}

var _ ports.ContactDirectory = (*CachedClient)(nil)
