// Package cache wraps read-mostly repositories with an in-process TTL cache.
package cache

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ignite/optin-mailer/internal/domain"
	"github.com/ignite/optin-mailer/internal/service/messages"
)

// EmailServiceRepo caches a workspace's email service list. Services are
// edited rarely and read on every confirmation dispatch.
type EmailServiceRepo struct {
	next messages.EmailServiceRepository
	c    *gocache.Cache
}

// NewEmailServiceRepo wraps next. A ttl of zero or less disables caching
// and returns next unchanged.
func NewEmailServiceRepo(next messages.EmailServiceRepository, ttl time.Duration) messages.EmailServiceRepository {
	if ttl <= 0 {
		return next
	}
	return &EmailServiceRepo{next: next, c: gocache.New(ttl, time.Minute)}
}

func (r *EmailServiceRepo) All(ctx context.Context, workspaceID int64) ([]domain.EmailService, error) {
	key := strconv.FormatInt(workspaceID, 10)
	if v, ok := r.c.Get(key); ok {
		cached, _ := v.([]domain.EmailService)
		return copyServices(cached), nil
	}

	services, err := r.next.All(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	// Empty lists are not cached so a newly added service is picked up on
	// the next confirmation.
	if len(services) > 0 {
		r.c.SetDefault(key, copyServices(services))
	}
	return services, nil
}

// Invalidate drops the cached list for a workspace.
func (r *EmailServiceRepo) Invalidate(workspaceID int64) {
	r.c.Delete(strconv.FormatInt(workspaceID, 10))
}

func copyServices(in []domain.EmailService) []domain.EmailService {
	out := make([]domain.EmailService, len(in))
	copy(out, in)
	return out
}
