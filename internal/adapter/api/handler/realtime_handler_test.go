package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom/internal/adapter/repository"
	"dealroom/internal/domain/entity"
	"dealroom/internal/infrastructure/cache"
	"dealroom/internal/infrastructure/ratelimit"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/utils"
)

type realtimeFixture struct {
	ctx      context.Context
	hub      *ws.Hub
	deals    *usecase.DealUseCase
	presence *usecase.PresenceTracker
	handler  *RealtimeHandler

	buyer    *entity.Principal
	seller   *entity.Principal
	outsider *entity.Principal
}

func newRealtimeFixture(t *testing.T) *realtimeFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := cache.NewRedisCache(client)

	store := repository.NewMemoryStore()
	locks := utils.NewKeyedMutex()
	hub := ws.NewHub(nil)

	history := usecase.NewHistoryCache(c, store.Messages(), store.Deals(), locks, usecase.HistoryCacheConfig{
		HistoryTTL:  time.Hour,
		SnapshotTTL: time.Hour,
		Window:      50,
	}, nil)
	presence := usecase.NewPresenceTracker(c, time.Hour, nil)
	notifications := usecase.NewNotificationUseCase(store.Notifications(), hub)
	documents := usecase.NewDocumentUseCase(store.Documents(), store.Deals(), nil, notifications, hub, 0)
	deals := usecase.NewDealUseCase(store.Deals(), store.Users(), store.Listings(), store.Messages(),
		history, presence, notifications, documents, hub, locks)
	messages := usecase.NewMessageUseCase(store.Messages(), store.Deals(), history, notifications, hub, locks)

	f := &realtimeFixture{
		ctx:      context.Background(),
		hub:      hub,
		deals:    deals,
		presence: presence,
		handler:  NewRealtimeHandler(hub, deals, messages, presence, ratelimit.NewRateLimiter(nil), nil),
	}

	addUser := func(id, name, role string) *entity.Principal {
		require.NoError(t, store.Users().Create(f.ctx, &entity.User{ID: id, Name: name, Role: role}))
		return &entity.Principal{ID: id, Name: name, Role: role}
	}
	f.buyer = addUser("buyer-1", "Bea", entity.RoleBuyer)
	f.seller = addUser("seller-1", "Sam", entity.RoleSeller)
	f.outsider = addUser("buyer-2", "Olly", entity.RoleBuyer)
	return f
}

func (f *realtimeFixture) acceptedDeal(t *testing.T) *entity.Deal {
	t.Helper()
	deal, err := f.deals.Create(f.ctx, f.buyer, usecase.CreateDealInput{Title: "Bike", Price: 100})
	require.NoError(t, err)
	deal, err = f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealInProgress)
	require.NoError(t, err)
	return deal
}

func (f *realtimeFixture) connect(t *testing.T, p *entity.Principal) *ws.Client {
	t.Helper()
	c := ws.NewClient(f.hub, nil, *p, 32)
	require.NoError(t, f.hub.Register(c))
	return c
}

func (f *realtimeFixture) send(c *ws.Client, event string, data interface{}) {
	raw, _ := json.Marshal(map[string]interface{}{"type": event, "data": data})
	f.handler.HandleMessage(f.ctx, c, raw)
}

func received(c *ws.Client) []ws.Envelope {
	var out []ws.Envelope
	for {
		select {
		case raw, ok := <-c.Outbound():
			if !ok {
				return out
			}
			var env ws.Envelope
			json.Unmarshal(raw, &env)
			out = append(out, env)
		default:
			return out
		}
	}
}

func types(envelopes []ws.Envelope) []string {
	out := make([]string, 0, len(envelopes))
	for _, env := range envelopes {
		out = append(out, env.Type)
	}
	return out
}

func errorCode(t *testing.T, env ws.Envelope) string {
	t.Helper()
	require.Equal(t, ws.EventError, env.Type)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	code, _ := data["code"].(string)
	return code
}

func TestJoinDealRejectsNonParticipant(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	outsider := f.connect(t, f.outsider)
	f.send(outsider, "join_deal", map[string]string{"dealId": deal.ID})

	got := received(outsider)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeForbidden, errorCode(t, got[0]))
	assert.False(t, f.hub.IsMember(outsider, ws.DealChannel(deal.ID)))

	online, err := f.presence.Online(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestJoinDealAnnouncesPresence(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)

	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	got := received(buyer)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventJoinedDeal, got[0].Type)
	assert.True(t, f.hub.IsMember(buyer, ws.DealChannel(deal.ID)))

	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	assert.Equal(t, []string{ws.EventJoinedDeal}, types(received(seller)))
	assert.Equal(t, []string{ws.EventPresenceUpdated}, types(received(buyer)))

	online, err := f.presence.Online(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"buyer-1", "seller-1"}, online)

	f.send(seller, "leave_deal", map[string]string{"dealId": deal.ID})
	assert.Equal(t, []string{ws.EventPresenceUpdated}, types(received(buyer)))
	assert.False(t, f.hub.IsMember(seller, ws.DealChannel(deal.ID)))

	online, err = f.presence.Online(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer-1"}, online)
}

func TestTypingRequiresJoin(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)

	f.send(buyer, "typing_start", map[string]string{"dealId": deal.ID})
	got := received(buyer)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeForbidden, errorCode(t, got[0]))

	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	received(buyer)
	received(seller)

	f.send(buyer, "typing_start", map[string]string{"dealId": deal.ID})
	f.send(buyer, "typing_stop", map[string]string{"dealId": deal.ID})

	assert.Empty(t, received(buyer))
	assert.Equal(t, []string{ws.EventUserTyping, ws.EventUserStopTyping}, types(received(seller)))
}

func TestSendMessageOverSocket(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)
	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	received(buyer)
	received(seller)

	f.send(buyer, "send_message", map[string]string{"dealId": deal.ID, "message": "Is it still available?"})

	assert.Equal(t, []string{ws.EventNewMessage}, types(received(buyer)))
	assert.ElementsMatch(t, []string{ws.EventNewNotification, ws.EventNewMessage}, types(received(seller)))

	f.send(buyer, "send_message", map[string]string{"dealId": deal.ID})
	got := received(buyer)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[0]))
}

func TestDisconnectStopsTyping(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)
	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	received(seller)

	f.handler.HandleDisconnect(buyer)
	f.hub.Unregister(buyer)

	assert.Equal(t, []string{ws.EventUserStopTyping}, types(received(seller)))

	online, err := f.presence.Online(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.Contains(t, online, "buyer-1")
}

func TestPingAndMalformedEvents(t *testing.T) {
	f := newRealtimeFixture(t)
	c := f.connect(t, f.buyer)

	f.send(c, "ping", nil)
	assert.Equal(t, []string{ws.EventPong}, types(received(c)))

	f.handler.HandleMessage(f.ctx, c, []byte("not json"))
	f.send(c, "launch_rocket", map[string]string{})
	got := received(c)
	require.Len(t, got, 2)
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[0]))
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[1]))
}

func TestRealtimeRateLimit(t *testing.T) {
	f := newRealtimeFixture(t)
	f.handler.limiter = ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		"join_deal": {Every: time.Hour, Burst: 1},
	})
	deal := f.acceptedDeal(t)
	c := f.connect(t, f.buyer)

	f.send(c, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(c, "join_deal", map[string]string{"dealId": deal.ID})

	got := received(c)
	require.Len(t, got, 2)
	assert.Equal(t, ws.EventJoinedDeal, got[0].Type)
	assert.Equal(t, errors.CodeTooManyRequests, errorCode(t, got[1]))
}

func TestJoinDealAfterUnregister(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	c := f.connect(t, f.buyer)
	f.hub.Unregister(c)

	err := f.handler.join(f.ctx, c, deal.ID)
	assert.True(t, errors.Is(err, errors.CodeConflict))
	assert.Empty(t, received(c))
	assert.False(t, f.hub.IsMember(c, ws.DealChannel(deal.ID)))

	online, err := f.presence.Online(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestUpdatePriceOverSocket(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)
	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	received(buyer)
	received(seller)

	f.send(seller, "update_price", map[string]interface{}{"dealId": deal.ID, "price": 90})

	assert.Equal(t, []string{ws.EventPriceUpdated}, types(received(seller)))
	assert.ElementsMatch(t, []string{ws.EventNewNotification, ws.EventPriceUpdated}, types(received(buyer)))

	snapshot, err := f.deals.Snapshot(f.ctx, f.buyer, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(90), snapshot.Price)

	f.send(seller, "update_price", map[string]interface{}{"price": 80})
	got := received(seller)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[0]))

	f.send(seller, "update_price", map[string]interface{}{"dealId": deal.ID, "price": 0})
	got = received(seller)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[0]))
	assert.Empty(t, received(buyer))
}

func TestMarkReadOverSocket(t *testing.T) {
	f := newRealtimeFixture(t)
	deal := f.acceptedDeal(t)

	buyer := f.connect(t, f.buyer)
	seller := f.connect(t, f.seller)
	f.send(buyer, "join_deal", map[string]string{"dealId": deal.ID})
	f.send(seller, "join_deal", map[string]string{"dealId": deal.ID})
	received(buyer)
	received(seller)

	f.send(buyer, "send_message", map[string]string{"dealId": deal.ID, "message": "Deal?"})
	received(buyer)

	var messageID string
	for _, env := range received(seller) {
		if env.Type == ws.EventNewMessage {
			data, ok := env.Data.(map[string]interface{})
			require.True(t, ok)
			messageID, _ = data["id"].(string)
		}
	}
	require.NotEmpty(t, messageID)

	f.send(seller, "mark_read", map[string]string{"messageId": messageID})
	assert.Equal(t, []string{ws.EventMessageRead}, types(received(seller)))
	assert.Equal(t, []string{ws.EventMessageRead}, types(received(buyer)))

	f.send(seller, "mark_read", map[string]string{"messageId": messageID})
	assert.Empty(t, received(seller))
	assert.Empty(t, received(buyer))

	f.send(seller, "mark_read", map[string]string{})
	got := received(seller)
	require.Len(t, got, 1)
	assert.Equal(t, errors.CodeBadRequest, errorCode(t, got[0]))

	f.send(f.connect(t, f.outsider), "mark_read", map[string]string{"messageId": messageID})
	assert.Empty(t, received(buyer))
}
