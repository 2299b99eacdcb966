package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	ws "dealroom/internal/infrastructure/websocket"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
	"dealroom/pkg/utils"
)

type DealUseCase struct {
	dealRepo      repository.DealRepository
	userRepo      repository.UserRepository
	listingRepo   repository.ListingRepository
	messageRepo   repository.MessageRepository
	history       *HistoryCache
	presence      *PresenceTracker
	notifications *NotificationUseCase
	documents     *DocumentUseCase
	broadcaster   Broadcaster
	locks         *utils.KeyedMutex
	now           func() time.Time
}

func NewDealUseCase(
	dealRepo repository.DealRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	messageRepo repository.MessageRepository,
	history *HistoryCache,
	presence *PresenceTracker,
	notifications *NotificationUseCase,
	documents *DocumentUseCase,
	broadcaster Broadcaster,
	locks *utils.KeyedMutex,
) *DealUseCase {
	return &DealUseCase{
		dealRepo:      dealRepo,
		userRepo:      userRepo,
		listingRepo:   listingRepo,
		messageRepo:   messageRepo,
		history:       history,
		presence:      presence,
		notifications: notifications,
		documents:     documents,
		broadcaster:   broadcaster,
		locks:         locks,
		now:           time.Now,
	}
}

type CreateDealInput struct {
	Title       string
	Description string
	Price       float64
	// ListingID ties the deal to a listing; its seller becomes the deal's seller.
	ListingID string
	// BuyerID is required when a seller opens the deal.
	BuyerID string
}

type UpdateDealInput struct {
	Title       *string
	Description *string
}

type DealListInput struct {
	Status entity.DealStatus
	// Open lists pending deals that no seller has accepted yet.
	Open   bool
	Limit  int
	Offset int
}

// PriceUpdate is the payload of a price_updated event.
type PriceUpdate struct {
	Deal        *entity.Deal      `json:"deal"`
	PriceUpdate entity.PriceEntry `json:"priceUpdate"`
}

func (uc *DealUseCase) Create(ctx context.Context, p *entity.Principal, input CreateDealInput) (*entity.Deal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.BadRequest("Title is required", nil)
	}
	if input.Price <= 0 {
		return nil, errors.BadRequest("Price must be greater than zero", nil)
	}

	deal := &entity.Deal{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      entity.DealPending,
		InitiatedBy: p.Role,
	}

	switch p.Role {
	case entity.RoleBuyer:
		deal.Buyer = entity.UserRef{ID: p.ID, Name: p.Name}
		deal.Participants = []string{p.ID}

		if input.ListingID != "" {
			listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
			if err != nil {
				return nil, err
			}
			if listing.SellerID == p.ID {
				return nil, errors.BadRequest("You cannot open a deal on your own listing", nil)
			}
			seller, err := uc.userRepo.GetByID(ctx, listing.SellerID)
			if err != nil {
				return nil, err
			}
			deal.Listing = &entity.ListingRef{ID: listing.ID, Title: listing.Title}
			deal.AssignSeller(seller.Ref())
		}

	case entity.RoleSeller:
		if input.BuyerID == "" {
			return nil, errors.BadRequest("Buyer is required when a seller opens a deal", nil)
		}
		buyer, err := uc.userRepo.GetByID(ctx, input.BuyerID)
		if err != nil {
			return nil, err
		}
		if buyer.Role != entity.RoleBuyer {
			return nil, errors.BadRequest("Deals can only be opened towards a buyer", nil)
		}
		deal.Buyer = *buyer.Ref()
		deal.AssignSeller(&entity.UserRef{ID: p.ID, Name: p.Name})

	default:
		return nil, errors.Forbidden("Only buyers and sellers can open deals", nil)
	}

	deal.AppendPrice(input.Price, p.ID, uc.now())

	if err := uc.dealRepo.Create(ctx, deal); err != nil {
		return nil, err
	}
	uc.history.StoreSnapshot(ctx, deal)

	if recipients := deal.CounterParties(p.ID); len(recipients) > 0 {
		content := fmt.Sprintf("%s opened the deal \"%s\"", p.Name, deal.Title)
		uc.notifications.NotifyMany(ctx, recipients, entity.NotificationDeal, content, deal.ID)
	} else {
		uc.announceOpenDeal(ctx, deal)
	}

	logger.Info("Deal %s created by %s (%s)", deal.ID, p.ID, p.Role)
	return deal, nil
}

// announceOpenDeal tells every seller about a deal nobody has accepted yet.
func (uc *DealUseCase) announceOpenDeal(ctx context.Context, deal *entity.Deal) {
	sellers, err := uc.userRepo.ListByRole(ctx, entity.RoleSeller)
	if err != nil {
		logger.Error("Failed to list sellers for deal %s: %v", deal.ID, err)
		return
	}

	recipients := make([]string, 0, len(sellers))
	for _, seller := range sellers {
		recipients = append(recipients, seller.ID)
	}
	content := fmt.Sprintf("New deal available: \"%s\"", deal.Title)
	uc.notifications.NotifyMany(ctx, recipients, entity.NotificationDeal, content, deal.ID)
}

func (uc *DealUseCase) Get(ctx context.Context, p *entity.Principal, id string) (*entity.Deal, error) {
	deal, err := uc.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(deal, p) {
		return nil, errors.Forbidden("You do not have access to this deal", nil)
	}
	return deal, nil
}

// Authorize loads the authoritative deal record and checks that p may
// take part in it.
func (uc *DealUseCase) Authorize(ctx context.Context, p *entity.Principal, id string) (*entity.Deal, error) {
	deal, err := uc.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(deal, p) {
		return nil, errors.Forbidden("You are not a participant of this deal", nil)
	}
	return deal, nil
}

func (uc *DealUseCase) List(ctx context.Context, p *entity.Principal, input DealListInput) ([]*entity.Deal, int64, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, 0, errors.BadRequest("Unknown deal status", nil)
	}

	filter := repository.DealFilter{Status: input.Status}
	switch {
	case input.Open:
		if !p.IsSeller() && !p.IsAdmin() {
			return nil, 0, errors.Forbidden("Only sellers can browse open deals", nil)
		}
		filter.OpenOnly = true
	case !p.IsAdmin():
		filter.ParticipantID = p.ID
	}

	return uc.dealRepo.List(ctx, filter, input.Limit, input.Offset)
}

func (uc *DealUseCase) Snapshot(ctx context.Context, p *entity.Principal, id string) (*entity.DealSnapshot, error) {
	snapshot, err := uc.history.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	open := snapshot.Status == entity.DealPending && snapshot.Seller == nil
	participant := snapshot.Buyer.ID == p.ID || (snapshot.Seller != nil && snapshot.Seller.ID == p.ID)
	if !p.IsAdmin() && !participant && !(open && p.IsSeller()) {
		return nil, errors.Forbidden("You do not have access to this deal", nil)
	}
	return snapshot, nil
}

func (uc *DealUseCase) Update(ctx context.Context, p *entity.Principal, id string, input UpdateDealInput) (*entity.Deal, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	deal, err := uc.dealRepo.Mutate(ctx, id, func(d *entity.Deal) error {
		if err := checkEditable(d, p); err != nil {
			return err
		}
		if input.Title != nil {
			d.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			d.Description = strings.TrimSpace(*input.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.history.StoreSnapshot(ctx, deal)
	uc.broadcaster.BroadcastToDeal(id, ws.EventDealUpdated, deal)
	return deal, nil
}

func (uc *DealUseCase) UpdateStatus(ctx context.Context, p *entity.Principal, id string, status entity.DealStatus) (*entity.Deal, error) {
	if !status.Valid() {
		return nil, errors.BadRequest("Unknown deal status", nil)
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	deal, err := uc.dealRepo.Mutate(ctx, id, func(d *entity.Deal) error {
		return applyTransition(d, p, status)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Deal %s moved to %s by %s", id, deal.Status, p.ID)

	uc.history.StoreSnapshot(ctx, deal)
	uc.notifications.NotifyMany(ctx, deal.CounterParties(p.ID), entity.NotificationStatus, statusMessage(deal, p), id)
	uc.broadcaster.BroadcastToDeal(id, ws.EventDealStatusUpdated, deal)
	return deal, nil
}

func (uc *DealUseCase) UpdatePrice(ctx context.Context, p *entity.Principal, id string, price float64) (*PriceUpdate, error) {
	if price <= 0 {
		return nil, errors.BadRequest("Price must be greater than zero", nil)
	}

	unlock := uc.locks.Lock(id)
	defer unlock()

	var entry entity.PriceEntry
	deal, err := uc.dealRepo.Mutate(ctx, id, func(d *entity.Deal) error {
		if err := checkEditable(d, p); err != nil {
			return err
		}
		entry = d.AppendPrice(price, p.ID, uc.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	update := &PriceUpdate{Deal: deal, PriceUpdate: entry}

	uc.history.StoreSnapshot(ctx, deal)
	content := fmt.Sprintf("%s offered %.2f on \"%s\"", p.Name, price, deal.Title)
	uc.notifications.NotifyMany(ctx, deal.CounterParties(p.ID), entity.NotificationPrice, content, id)
	uc.broadcaster.BroadcastToDeal(id, ws.EventPriceUpdated, update)
	return update, nil
}

// Delete removes the deal, then its messages, notifications and documents.
// Dependents are cleaned up best-effort once the deal record is gone.
// Admins may delete any deal; buyers only their own pending ones.
func (uc *DealUseCase) Delete(ctx context.Context, p *entity.Principal, id string) error {
	unlock := uc.locks.Lock(id)
	defer unlock()

	deal, err := uc.dealRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && !(deal.Buyer.ID == p.ID && deal.Status == entity.DealPending) {
		return errors.Forbidden("Only the buyer can delete a pending deal", nil)
	}

	// The deal record goes first so a failed cleanup never leaves a live
	// deal with part of its history missing.
	if err := uc.dealRepo.Delete(ctx, id); err != nil {
		return err
	}

	if err := uc.messageRepo.DeleteByDeal(ctx, id); err != nil {
		logger.Error("Failed to delete messages of deal %s: %v", id, err)
	}
	if err := uc.notifications.DeleteForDeal(ctx, id); err != nil {
		logger.Error("Failed to delete notifications of deal %s: %v", id, err)
	}
	if err := uc.documents.DeleteForDeal(ctx, id); err != nil {
		logger.Error("Failed to delete documents of deal %s: %v", id, err)
	}

	uc.history.Forget(ctx, id)
	uc.presence.Clear(ctx, id)

	logger.Info("Deal %s deleted by %s", id, p.ID)
	return nil
}
