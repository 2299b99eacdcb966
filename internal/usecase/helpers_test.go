package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"dealroom/internal/adapter/repository"
	"dealroom/internal/domain/entity"
	"dealroom/internal/infrastructure/cache"
	"dealroom/pkg/utils"
)

type recordedEvent struct {
	Target  string
	Event   string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingBroadcaster) BroadcastToDeal(dealID, event string, payload interface{}) {
	r.record("deal:"+dealID, event, payload)
}

func (r *recordingBroadcaster) SendToUser(userID, event string, payload interface{}) {
	r.record("user:"+userID, event, payload)
}

func (r *recordingBroadcaster) record(target, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Target: target, Event: event, Payload: payload})
}

func (r *recordingBroadcaster) Named(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []recordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx         context.Context
	store       *repository.MemoryStore
	redis       *miniredis.Miniredis
	broadcaster *recordingBroadcaster

	history       *HistoryCache
	presence      *PresenceTracker
	notifications *NotificationUseCase
	documents     *DocumentUseCase
	deals         *DealUseCase
	messages      *MessageUseCase

	buyer  *entity.Principal
	seller *entity.Principal
	admin  *entity.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	c := cache.NewRedisCache(client)

	store := repository.NewMemoryStore()
	locks := utils.NewKeyedMutex()
	broadcaster := &recordingBroadcaster{}

	history := NewHistoryCache(c, store.Messages(), store.Deals(), locks, HistoryCacheConfig{
		HistoryTTL:  24 * time.Hour,
		SnapshotTTL: 24 * time.Hour,
		Window:      50,
	}, nil)
	presence := NewPresenceTracker(c, 24*time.Hour, nil)
	notifications := NewNotificationUseCase(store.Notifications(), broadcaster)
	documents := NewDocumentUseCase(store.Documents(), store.Deals(), nil, notifications, broadcaster, 1024)

	f := &fixture{
		ctx:           context.Background(),
		store:         store,
		redis:         mr,
		broadcaster:   broadcaster,
		history:       history,
		presence:      presence,
		notifications: notifications,
		documents:     documents,
		deals: NewDealUseCase(store.Deals(), store.Users(), store.Listings(), store.Messages(),
			history, presence, notifications, documents, broadcaster, locks),
		messages: NewMessageUseCase(store.Messages(), store.Deals(), history, notifications, broadcaster, locks),
	}

	f.buyer = f.addUser(t, "buyer-1", "Bea", entity.RoleBuyer)
	f.seller = f.addUser(t, "seller-1", "Sam", entity.RoleSeller)
	f.admin = f.addUser(t, "admin-1", "Ada", entity.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, id, name, role string) *entity.Principal {
	t.Helper()
	require.NoError(t, f.store.Users().Create(f.ctx, &entity.User{ID: id, Name: name, Role: role}))
	return &entity.Principal{ID: id, Name: name, Role: role}
}

func (f *fixture) openDeal(t *testing.T, title string, price float64) *entity.Deal {
	t.Helper()
	deal, err := f.deals.Create(f.ctx, f.buyer, CreateDealInput{Title: title, Price: price})
	require.NoError(t, err)
	return deal
}

func (f *fixture) acceptedDeal(t *testing.T, title string, price float64) *entity.Deal {
	t.Helper()
	deal := f.openDeal(t, title, price)
	deal, err := f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealInProgress)
	require.NoError(t, err)
	return deal
}
