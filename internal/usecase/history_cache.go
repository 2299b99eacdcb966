package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"golang.org/x/sync/singleflight"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/internal/domain/service"
	"dealroom/internal/infrastructure/metrics"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
	"dealroom/pkg/utils"
)

const (
	historyCacheName  = "history"
	snapshotCacheName = "snapshot"
)

func historyKey(dealID string) string {
	return "deal:" + dealID + ":messages"
}

func snapshotKey(dealID string) string {
	return "deal:" + dealID + ":snapshot"
}

type HistoryCacheConfig struct {
	HistoryTTL  time.Duration
	SnapshotTTL time.Duration
	// Window is how many of the most recent messages a list keeps once
	// new messages are appended to it.
	Window int64
}

// HistoryCache mirrors per-deal message history and deal snapshots. The
// durable store stays authoritative: every cache failure falls back to it.
type HistoryCache struct {
	cache    service.Cache
	messages repository.MessageRepository
	deals    repository.DealRepository
	locks    *utils.KeyedMutex
	config   HistoryCacheConfig
	metrics  *metrics.Metrics
	group    singleflight.Group
}

func NewHistoryCache(
	cache service.Cache,
	messages repository.MessageRepository,
	deals repository.DealRepository,
	locks *utils.KeyedMutex,
	config HistoryCacheConfig,
	m *metrics.Metrics,
) *HistoryCache {
	if config.Window <= 0 {
		config.Window = 50
	}
	return &HistoryCache{
		cache:    cache,
		messages: messages,
		deals:    deals,
		locks:    locks,
		config:   config,
		metrics:  m,
	}
}

// Messages returns the deal's history oldest-first.
func (h *HistoryCache) Messages(ctx context.Context, dealID string) ([]*entity.Message, error) {
	cached, err := h.cache.ListRange(ctx, historyKey(dealID), 0, -1)
	switch {
	case err == nil:
		messages, decodeErr := decodeMessages(cached)
		if decodeErr == nil {
			h.metrics.CacheHit(historyCacheName)
			return messages, nil
		}
		h.unavailable(historyCacheName, "history decode", decodeErr)
	case stderrors.Is(err, service.ErrCacheMiss):
		h.metrics.CacheMiss(historyCacheName)
	default:
		h.unavailable(historyCacheName, "history read", err)
	}

	v, err, _ := h.group.Do(dealID, func() (interface{}, error) {
		return h.load(ctx, dealID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*entity.Message), nil
}

// load reads the full history and repopulates the list. It holds the deal
// lock so an append cannot slip between the read and the write.
func (h *HistoryCache) load(ctx context.Context, dealID string) ([]*entity.Message, error) {
	unlock := h.locks.Lock(dealID)
	defer unlock()

	messages, _, err := h.messages.ListByDeal(ctx, dealID, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	values := make([][]byte, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return messages, nil
		}
		values = append(values, data)
	}
	if err := h.cache.ListReplace(ctx, historyKey(dealID), values, h.config.HistoryTTL); err != nil {
		h.unavailable(historyCacheName, "history populate", err)
	}
	return messages, nil
}

// Append mirrors a message that has already been persisted. Callers hold
// the deal lock.
func (h *HistoryCache) Append(ctx context.Context, message *entity.Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to encode message %s for cache: %v", message.ID, err)
		return
	}
	_, err = h.cache.ListAppend(ctx, historyKey(message.DealID), data, h.config.Window, h.config.HistoryTTL)
	if err != nil {
		h.unavailable(historyCacheName, "history append", err)
		h.Invalidate(ctx, message.DealID)
	}
}

// Invalidate drops the cached history so the next read rebuilds it.
func (h *HistoryCache) Invalidate(ctx context.Context, dealID string) {
	if err := h.cache.Delete(ctx, historyKey(dealID)); err != nil {
		h.unavailable(historyCacheName, "history invalidate", err)
	}
}

func (h *HistoryCache) StoreSnapshot(ctx context.Context, deal *entity.Deal) {
	data, err := json.Marshal(deal.Snapshot())
	if err != nil {
		logger.Error("Failed to encode snapshot of deal %s: %v", deal.ID, err)
		return
	}
	if err := h.cache.Set(ctx, snapshotKey(deal.ID), data, h.config.SnapshotTTL); err != nil {
		h.unavailable(snapshotCacheName, "snapshot write", err)
	}
}

// Snapshot is read-through: a miss loads the deal and caches its snapshot.
func (h *HistoryCache) Snapshot(ctx context.Context, dealID string) (*entity.DealSnapshot, error) {
	data, err := h.cache.Get(ctx, snapshotKey(dealID))
	switch {
	case err == nil:
		var snapshot entity.DealSnapshot
		decodeErr := json.Unmarshal(data, &snapshot)
		if decodeErr == nil {
			h.metrics.CacheHit(snapshotCacheName)
			return &snapshot, nil
		}
		h.unavailable(snapshotCacheName, "snapshot decode", decodeErr)
	case stderrors.Is(err, service.ErrCacheMiss):
		h.metrics.CacheMiss(snapshotCacheName)
	default:
		h.unavailable(snapshotCacheName, "snapshot read", err)
	}

	deal, err := h.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	h.StoreSnapshot(ctx, deal)
	return deal.Snapshot(), nil
}

// Forget removes everything cached for a deal.
func (h *HistoryCache) Forget(ctx context.Context, dealID string) {
	if err := h.cache.Delete(ctx, historyKey(dealID), snapshotKey(dealID)); err != nil {
		h.unavailable(historyCacheName, "deal forget", err)
	}
}

func (h *HistoryCache) unavailable(cacheName, operation string, err error) {
	appErr := errors.CacheUnavailable(operation, err)
	h.metrics.CacheError(cacheName)
	logger.Warn("%v", appErr)
}

func decodeMessages(raw [][]byte) ([]*entity.Message, error) {
	messages := make([]*entity.Message, 0, len(raw))
	for _, item := range raw {
		var m entity.Message
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, nil
}
