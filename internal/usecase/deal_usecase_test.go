package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/errors"
)

func TestCreateStandaloneDealAnnouncesToSellers(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "seller-2", "Sid", entity.RoleSeller)

	deal := f.openDeal(t, "Bike", 100)

	assert.Equal(t, entity.DealPending, deal.Status)
	assert.Nil(t, deal.Seller)
	assert.Equal(t, entity.RoleBuyer, deal.InitiatedBy)
	require.Len(t, deal.PriceHistory, 1)
	assert.Equal(t, entity.PriceEntry{Price: 100, UserID: f.buyer.ID, Timestamp: deal.PriceHistory[0].Timestamp}, deal.PriceHistory[0])

	pushed := f.broadcaster.Named(ws.EventNewNotification)
	require.Len(t, pushed, 2)
	assert.ElementsMatch(t, []string{"user:seller-1", "user:seller-2"}, []string{pushed[0].Target, pushed[1].Target})
}

func TestCreateDealFromListingAssignsSeller(t *testing.T) {
	f := newFixture(t)
	f.store.SeedListing(entity.Listing{ID: "l1", Title: "Road bike", Price: 120, SellerID: f.seller.ID})

	deal, err := f.deals.Create(f.ctx, f.buyer, CreateDealInput{Title: "Bike", Price: 110, ListingID: "l1"})
	require.NoError(t, err)

	require.NotNil(t, deal.Seller)
	assert.Equal(t, f.seller.ID, deal.Seller.ID)
	assert.Equal(t, "Road bike", deal.Listing.Title)
	assert.ElementsMatch(t, []string{f.buyer.ID, f.seller.ID}, deal.Participants)

	notes, total, err := f.notifications.List(f.ctx, f.seller.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, entity.NotificationDeal, notes[0].Type)
}

func TestSellerInitiatedDeal(t *testing.T) {
	f := newFixture(t)

	_, err := f.deals.Create(f.ctx, f.seller, CreateDealInput{Title: "Lamp", Price: 20})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	deal, err := f.deals.Create(f.ctx, f.seller, CreateDealInput{Title: "Lamp", Price: 20, BuyerID: f.buyer.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSeller, deal.InitiatedBy)
	assert.Equal(t, f.buyer.ID, deal.Buyer.ID)
	assert.Equal(t, f.seller.ID, deal.SellerID())

	_, err = f.deals.Create(f.ctx, f.admin, CreateDealInput{Title: "Lamp", Price: 20})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestConcurrentAcceptanceExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	deal := f.openDeal(t, "Bike", 100)

	sellers := make([]*entity.Principal, 8)
	for i := range sellers {
		sellers[i] = f.addUser(t, fmt.Sprintf("s-%d", i), fmt.Sprintf("Seller %d", i), entity.RoleSeller)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		rejected int
	)
	for _, s := range sellers {
		wg.Add(1)
		go func(s *entity.Principal) {
			defer wg.Done()
			_, err := f.deals.UpdateStatus(f.ctx, s, deal.ID, entity.DealInProgress)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, s.ID)
				return
			}
			if errors.Is(err, errors.CodeInvalidTransition) {
				rejected++
			}
		}(s)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, len(sellers)-1, rejected)

	stored, err := f.store.Deals().GetByID(f.ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DealInProgress, stored.Status)
	assert.Equal(t, winners[0], stored.SellerID())
}

func TestAcceptanceAssignsSellerAndNotifiesBuyer(t *testing.T) {
	f := newFixture(t)
	deal := f.openDeal(t, "Bike", 100)

	accepted, err := f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealInProgress)
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, accepted.SellerID())

	notes, _, err := f.notifications.List(f.ctx, f.buyer.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, entity.NotificationStatus, notes[0].Type)
	assert.Equal(t, deal.ID, notes[0].DealID)

	updates := f.broadcaster.Named(ws.EventDealStatusUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "deal:"+deal.ID, updates[0].Target)

	completed, err := f.deals.UpdateStatus(f.ctx, f.buyer, deal.ID, entity.DealCompleted)
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, completed.SellerID())
}

func TestTransitionRules(t *testing.T) {
	f := newFixture(t)
	outsider := f.addUser(t, "buyer-2", "Bo", entity.RoleBuyer)

	deal := f.openDeal(t, "Bike", 100)

	_, err := f.deals.UpdateStatus(f.ctx, f.buyer, deal.ID, entity.DealInProgress)
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "buyers cannot accept")

	_, err = f.deals.UpdateStatus(f.ctx, f.admin, deal.ID, entity.DealInProgress)
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "admin cannot accept without a seller")

	_, err = f.deals.UpdateStatus(f.ctx, f.buyer, deal.ID, entity.DealCompleted)
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "pending cannot complete")

	_, err = f.deals.UpdateStatus(f.ctx, outsider, deal.ID, entity.DealCancelled)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, err = f.deals.UpdateStatus(f.ctx, f.buyer, deal.ID, entity.DealStatus("accepted"))
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	cancelled, err := f.deals.UpdateStatus(f.ctx, f.buyer, deal.ID, entity.DealCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.DealCancelled, cancelled.Status)

	_, err = f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealInProgress)
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition), "cancelled is terminal")
}

func TestBikePriceScenario(t *testing.T) {
	f := newFixture(t)
	deal := f.openDeal(t, "Bike", 100)

	_, err := f.deals.UpdatePrice(f.ctx, f.seller, deal.ID, 90)
	assert.True(t, errors.Is(err, errors.CodeForbidden), "seller is not assigned yet")

	_, err = f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealInProgress)
	require.NoError(t, err)

	update, err := f.deals.UpdatePrice(f.ctx, f.seller, deal.ID, 90)
	require.NoError(t, err)
	assert.Equal(t, float64(90), update.Deal.Price)
	require.Len(t, update.Deal.PriceHistory, 2)
	assert.Equal(t, float64(100), update.Deal.PriceHistory[0].Price)
	assert.Equal(t, f.seller.ID, update.PriceUpdate.UserID)

	_, err = f.deals.UpdatePrice(f.ctx, f.buyer, deal.ID, 0)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	prices := f.broadcaster.Named(ws.EventPriceUpdated)
	require.Len(t, prices, 1)
	assert.Same(t, update, prices[0].Payload)

	snapshot, err := f.deals.Snapshot(f.ctx, f.buyer, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(90), snapshot.Price)
	assert.Equal(t, entity.DealInProgress, snapshot.Status)
}

func TestCompletedDealRejectsEditsButAcceptsMessages(t *testing.T) {
	f := newFixture(t)
	deal := f.acceptedDeal(t, "Bike", 100)

	_, err := f.deals.UpdateStatus(f.ctx, f.seller, deal.ID, entity.DealCompleted)
	require.NoError(t, err)

	title := "Better bike"
	_, err = f.deals.Update(f.ctx, f.buyer, deal.ID, UpdateDealInput{Title: &title})
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition))

	_, err = f.deals.UpdatePrice(f.ctx, f.buyer, deal.ID, 80)
	assert.True(t, errors.Is(err, errors.CodeInvalidTransition))

	message, err := f.messages.Send(f.ctx, f.buyer, deal.ID, "thanks!")
	require.NoError(t, err)
	assert.Len(t, f.broadcaster.Named(ws.EventNewMessage), 1)

	stored, err := f.store.Messages().GetByID(f.ctx, message.ID)
	require.NoError(t, err)
	assert.Equal(t, "thanks!", stored.Content)
}

func TestUpdateDealDetails(t *testing.T) {
	f := newFixture(t)
	deal := f.acceptedDeal(t, "Bike", 100)

	title, description := "Road bike", "Carbon frame"
	updated, err := f.deals.Update(f.ctx, f.seller, deal.ID, UpdateDealInput{Title: &title, Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "Road bike", updated.Title)
	assert.Equal(t, "Carbon frame", updated.Description)
	assert.Len(t, f.broadcaster.Named(ws.EventDealUpdated), 1)

	empty := " "
	_, err = f.deals.Update(f.ctx, f.seller, deal.ID, UpdateDealInput{Title: &empty})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestGetAndListVisibility(t *testing.T) {
	f := newFixture(t)
	outsider := f.addUser(t, "buyer-2", "Bo", entity.RoleBuyer)
	open := f.openDeal(t, "Bike", 100)

	_, err := f.deals.Get(f.ctx, f.seller, open.ID)
	assert.NoError(t, err, "sellers can view open deals")

	_, err = f.deals.Get(f.ctx, outsider, open.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	deals, total, err := f.deals.List(f.ctx, f.seller, DealListInput{Open: true, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, open.ID, deals[0].ID)

	_, _, err = f.deals.List(f.ctx, f.buyer, DealListInput{Open: true})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, total, err = f.deals.List(f.ctx, outsider, DealListInput{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = f.deals.List(f.ctx, f.admin, DealListInput{Status: entity.DealPending, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestDeleteDealCascades(t *testing.T) {
	f := newFixture(t)
	deal := f.acceptedDeal(t, "Bike", 100)

	_, err := f.messages.Send(f.ctx, f.buyer, deal.ID, "hello")
	require.NoError(t, err)
	_, err = f.messages.History(f.ctx, f.buyer, deal.ID)
	require.NoError(t, err)

	err = f.deals.Delete(f.ctx, f.buyer, deal.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden), "buyers can only delete pending deals")

	require.NoError(t, f.deals.Delete(f.ctx, f.admin, deal.ID))

	_, err = f.store.Deals().GetByID(f.ctx, deal.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	_, total, _ := f.store.Messages().ListByDeal(f.ctx, deal.ID, 0, 0)
	assert.Zero(t, total)
	_, total, _ = f.notifications.List(f.ctx, f.seller.ID, 10, 0)
	assert.Zero(t, total)
	assert.False(t, f.redis.Exists(historyKey(deal.ID)))
	assert.False(t, f.redis.Exists(snapshotKey(deal.ID)))
}

type stuckMessageRepo struct {
	repository.MessageRepository
}

func (stuckMessageRepo) DeleteByDeal(ctx context.Context, dealID string) error {
	return stderrors.New("delete failed")
}

func TestDeleteDealSurvivesFailedCleanup(t *testing.T) {
	f := newFixture(t)
	deal := f.acceptedDeal(t, "Bike", 100)
	_, err := f.messages.Send(f.ctx, f.buyer, deal.ID, "hello")
	require.NoError(t, err)

	deals := NewDealUseCase(f.store.Deals(), f.store.Users(), f.store.Listings(),
		stuckMessageRepo{f.store.Messages()}, f.history, f.presence, f.notifications,
		f.documents, f.broadcaster, f.deals.locks)

	require.NoError(t, deals.Delete(f.ctx, f.admin, deal.ID))

	_, err = f.store.Deals().GetByID(f.ctx, deal.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound), "deal record goes first")
	_, total, _ := f.notifications.List(f.ctx, f.seller.ID, 10, 0)
	assert.Zero(t, total, "remaining dependents are still cleaned up")
	assert.False(t, f.redis.Exists(historyKey(deal.ID)))
}
