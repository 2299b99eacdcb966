package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/pkg/errors"
)

// MemoryStore is a process-local durable store used when STORE_DRIVER is
// memory and by tests. Every value handed out is a copy.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]entity.User
	listings      map[string]entity.Listing
	deals         map[string]*entity.Deal
	messages      map[string]entity.Message
	dealMessages  map[string][]string
	notifications map[string]entity.Notification
	documents     map[string]entity.Document
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]entity.User),
		listings:      make(map[string]entity.Listing),
		deals:         make(map[string]*entity.Deal),
		messages:      make(map[string]entity.Message),
		dealMessages:  make(map[string][]string),
		notifications: make(map[string]entity.Notification),
		documents:     make(map[string]entity.Document),
		now:           time.Now,
	}
}

func (s *MemoryStore) Users() repository.UserRepository { return memoryUsers{s} }
func (s *MemoryStore) Listings() repository.ListingRepository { return memoryListings{s} }
func (s *MemoryStore) Deals() repository.DealRepository { return memoryDeals{s} }
func (s *MemoryStore) Messages() repository.MessageRepository { return memoryMessages{s} }
func (s *MemoryStore) Notifications() repository.NotificationRepository { return memoryNotifications{s} }
func (s *MemoryStore) Documents() repository.DocumentRepository { return memoryDocuments{s} }

// SeedListing stores a listing; listings have no write path of their own.
func (s *MemoryStore) SeedListing(listing entity.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = s.now()
	}
	s.listings[listing.ID] = listing
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return &user, nil
}

func (r memoryUsers) ListByRole(_ context.Context, role string) ([]*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.User
	for _, user := range r.s.users {
		if user.Role == role {
			u := user
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memoryListings struct{ s *MemoryStore }

func (r memoryListings) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	listing, ok := r.s.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return &listing, nil
}

type memoryDeals struct{ s *MemoryStore }

func (r memoryDeals) Create(_ context.Context, deal *entity.Deal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}
	if _, exists := r.s.deals[deal.ID]; exists {
		return errors.Conflict("Deal already exists")
	}
	now := r.s.now()
	deal.CreatedAt = now
	deal.UpdatedAt = now
	r.s.deals[deal.ID] = deal.Clone()
	return nil
}

func (r memoryDeals) GetByID(_ context.Context, id string) (*entity.Deal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	deal, ok := r.s.deals[id]
	if !ok {
		return nil, errors.NotFound("Deal", nil)
	}
	return deal.Clone(), nil
}

func (r memoryDeals) List(_ context.Context, filter repository.DealFilter, limit, offset int) ([]*entity.Deal, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*entity.Deal
	for _, deal := range r.s.deals {
		if filter.ParticipantID != "" && !deal.IsParticipant(filter.ParticipantID) {
			continue
		}
		if filter.OpenOnly {
			if !deal.IsOpen() {
				continue
			}
		} else if filter.Status != "" && deal.Status != filter.Status {
			continue
		}
		matched = append(matched, deal.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, limit, offset), int64(len(matched)), nil
}

// Mutate applies fn to a copy under the store lock, so concurrent callers
// are serialized the same way a transaction would serialize them.
func (r memoryDeals) Mutate(_ context.Context, id string, fn repository.MutateFunc) (*entity.Deal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.deals[id]
	if !ok {
		return nil, errors.NotFound("Deal", nil)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.s.now()
	r.s.deals[id] = next

	return next.Clone(), nil
}

func (r memoryDeals) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.deals, id)
	return nil
}

type memoryMessages struct{ s *MemoryStore }

func (r memoryMessages) Create(_ context.Context, message *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.s.now()
	}
	r.s.messages[message.ID] = *message
	r.s.dealMessages[message.DealID] = append(r.s.dealMessages[message.DealID], message.ID)
	return nil
}

func (r memoryMessages) GetByID(_ context.Context, id string) (*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	message, ok := r.s.messages[id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return &message, nil
}

func (r memoryMessages) ListByDeal(_ context.Context, dealID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.dealMessages[dealID]
	out := make([]*entity.Message, 0, len(ids))
	for _, id := range ids {
		message := r.s.messages[id]
		out = append(out, &message)
	}
	return paginate(out, limit, offset), int64(len(ids)), nil
}

func (r memoryMessages) MarkRead(_ context.Context, id string) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	message, ok := r.s.messages[id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	message.Read = true
	r.s.messages[id] = message
	return &message, nil
}

func (r memoryMessages) DeleteByDeal(_ context.Context, dealID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range r.s.dealMessages[dealID] {
		delete(r.s.messages, id)
	}
	delete(r.s.dealMessages, dealID)
	return nil
}

type memoryNotifications struct{ s *MemoryStore }

func (r memoryNotifications) Create(_ context.Context, notification *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.CreatedAt = r.s.now()
	r.s.notifications[notification.ID] = *notification
	return nil
}

func (r memoryNotifications) GetByID(_ context.Context, id string) (*entity.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	notification, ok := r.s.notifications[id]
	if !ok {
		return nil, errors.NotFound("Notification", nil)
	}
	return &notification, nil
}

func (r memoryNotifications) ListByUser(_ context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Notification
	for _, notification := range r.s.notifications {
		if notification.UserID == userID {
			n := notification
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), int64(len(out)), nil
}

func (r memoryNotifications) MarkRead(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notification, ok := r.s.notifications[id]
	if !ok {
		return errors.NotFound("Notification", nil)
	}
	notification.Read = true
	r.s.notifications[id] = notification
	return nil
}

func (r memoryNotifications) MarkAllRead(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, notification := range r.s.notifications {
		if notification.UserID == userID && !notification.Read {
			notification.Read = true
			r.s.notifications[id] = notification
		}
	}
	return nil
}

func (r memoryNotifications) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.notifications, id)
	return nil
}

func (r memoryNotifications) DeleteByDeal(_ context.Context, dealID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, notification := range r.s.notifications {
		if notification.DealID == dealID {
			delete(r.s.notifications, id)
		}
	}
	return nil
}

type memoryDocuments struct{ s *MemoryStore }

func (r memoryDocuments) Create(_ context.Context, document *entity.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	document.CreatedAt = r.s.now()
	r.s.documents[document.ID] = *document
	return nil
}

func (r memoryDocuments) GetByID(_ context.Context, id string) (*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	document, ok := r.s.documents[id]
	if !ok {
		return nil, errors.NotFound("Document", nil)
	}
	return &document, nil
}

func (r memoryDocuments) ListByDeal(_ context.Context, dealID string) ([]*entity.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Document
	for _, document := range r.s.documents {
		if document.DealID == dealID {
			d := document
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryDocuments) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.documents, id)
	return nil
}

func (r memoryDocuments) DeleteByDeal(_ context.Context, dealID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, document := range r.s.documents {
		if document.DealID == dealID {
			delete(r.s.documents, id)
		}
	}
	return nil
}
