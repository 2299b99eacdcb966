package entity

import "time"

type DealStatus string

const (
	DealPending    DealStatus = "pending"
	DealInProgress DealStatus = "in-progress"
	DealCompleted  DealStatus = "completed"
	DealCancelled  DealStatus = "cancelled"
)

// dealTransitions lists every status reachable from a given status.
// Completed and cancelled are terminal.
var dealTransitions = map[DealStatus][]DealStatus{
	DealPending:    {DealInProgress, DealCancelled},
	DealInProgress: {DealCompleted, DealCancelled},
}

func (s DealStatus) Valid() bool {
	switch s {
	case DealPending, DealInProgress, DealCompleted, DealCancelled:
		return true
	}
	return false
}

func (s DealStatus) IsTerminal() bool {
	return s == DealCompleted || s == DealCancelled
}

// CanTransitionTo reports whether the state machine has an edge from s to next.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	for _, allowed := range dealTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PriceEntry is immutable once appended to a deal's price history.
type PriceEntry struct {
	Price     float64   `json:"price" firestore:"price"`
	UserID    string    `json:"userId" firestore:"userId"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Deal is a negotiation between a buyer and, once accepted, a seller.
// PriceHistory is append-only and ordered oldest-first; its last entry is
// the current price. Seller is nil only while the deal is pending.
type Deal struct {
	ID           string       `json:"id" firestore:"id"`
	Title        string       `json:"title" firestore:"title"`
	Description  string       `json:"description" firestore:"description"`
	Price        float64      `json:"price" firestore:"price"`
	Status       DealStatus   `json:"status" firestore:"status"`
	Buyer        UserRef      `json:"buyer" firestore:"buyer"`
	Seller       *UserRef     `json:"seller" firestore:"seller"`
	Listing      *ListingRef  `json:"listing,omitempty" firestore:"listing,omitempty"`
	InitiatedBy  string       `json:"initiatedBy" firestore:"initiatedBy"`
	PriceHistory []PriceEntry `json:"priceHistory" firestore:"priceHistory"`
	Participants []string     `json:"-" firestore:"participants"`
	CreatedAt    time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

// DealSnapshot is the denormalized projection kept in the cache.
type DealSnapshot struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Price  float64    `json:"price"`
	Status DealStatus `json:"status"`
	Buyer  UserRef    `json:"buyer"`
	Seller *UserRef   `json:"seller"`
}

func (d *Deal) SellerID() string {
	if d.Seller == nil {
		return ""
	}
	return d.Seller.ID
}

// IsParticipant reports whether userID is the buyer or the assigned seller.
func (d *Deal) IsParticipant(userID string) bool {
	return userID != "" && (d.Buyer.ID == userID || d.SellerID() == userID)
}

// IsOpen reports whether the deal is still waiting for a seller to accept it.
func (d *Deal) IsOpen() bool {
	return d.Status == DealPending && d.Seller == nil
}

// CounterParties returns the participants other than actorID. A seller that
// has not been assigned yet is not a recipient.
func (d *Deal) CounterParties(actorID string) []string {
	var out []string
	if d.Buyer.ID != "" && d.Buyer.ID != actorID {
		out = append(out, d.Buyer.ID)
	}
	if sellerID := d.SellerID(); sellerID != "" && sellerID != actorID {
		out = append(out, sellerID)
	}
	return out
}

// AssignSeller records the seller and keeps the participants index in sync.
func (d *Deal) AssignSeller(seller *UserRef) {
	d.Seller = seller
	d.Participants = []string{d.Buyer.ID, seller.ID}
}

// AppendPrice makes price the current price and records who set it.
func (d *Deal) AppendPrice(price float64, userID string, at time.Time) PriceEntry {
	entry := PriceEntry{Price: price, UserID: userID, Timestamp: at}
	d.PriceHistory = append(d.PriceHistory, entry)
	d.Price = price
	return entry
}

func (d *Deal) Snapshot() *DealSnapshot {
	return &DealSnapshot{
		ID:     d.ID,
		Title:  d.Title,
		Price:  d.Price,
		Status: d.Status,
		Buyer:  d.Buyer,
		Seller: d.Seller,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (d *Deal) Clone() *Deal {
	c := *d
	if d.Seller != nil {
		s := *d.Seller
		c.Seller = &s
	}
	if d.Listing != nil {
		l := *d.Listing
		c.Listing = &l
	}
	c.PriceHistory = append([]PriceEntry(nil), d.PriceHistory...)
	c.Participants = append([]string(nil), d.Participants...)
	return &c
}
