package usecase

import (
	"context"
	"time"

	"dealroom/internal/domain/service"
	"dealroom/internal/infrastructure/metrics"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

const presenceCacheName = "presence"

func presenceKey(dealID string) string {
	return "deal:" + dealID + ":presence"
}

// PresenceTracker records which principals have joined a deal. Entries are
// only removed by an explicit leave or by expiry.
type PresenceTracker struct {
	cache   service.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewPresenceTracker(cache service.Cache, ttl time.Duration, m *metrics.Metrics) *PresenceTracker {
	return &PresenceTracker{
		cache:   cache,
		ttl:     ttl,
		metrics: m,
	}
}

func (p *PresenceTracker) Join(ctx context.Context, dealID, userID string) error {
	if err := p.cache.SetAdd(ctx, presenceKey(dealID), userID, p.ttl); err != nil {
		return p.unavailable("presence join", err)
	}
	return nil
}

func (p *PresenceTracker) Leave(ctx context.Context, dealID, userID string) error {
	if err := p.cache.SetRemove(ctx, presenceKey(dealID), userID); err != nil {
		return p.unavailable("presence leave", err)
	}
	return nil
}

func (p *PresenceTracker) Online(ctx context.Context, dealID string) ([]string, error) {
	members, err := p.cache.SetMembers(ctx, presenceKey(dealID))
	if err != nil {
		return nil, p.unavailable("presence read", err)
	}
	return members, nil
}

func (p *PresenceTracker) Clear(ctx context.Context, dealID string) {
	if err := p.cache.Delete(ctx, presenceKey(dealID)); err != nil {
		p.unavailable("presence clear", err)
	}
}

func (p *PresenceTracker) unavailable(operation string, err error) error {
	appErr := errors.CacheUnavailable(operation, err)
	p.metrics.CacheError(presenceCacheName)
	logger.Warn("%v", appErr)
	return appErr
}
