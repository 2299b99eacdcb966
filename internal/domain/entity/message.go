package entity

import "time"

// Message is immutable once created except for Read, which only moves from
// false to true.
type Message struct {
	ID        string    `json:"id" firestore:"id"`
	DealID    string    `json:"dealId" firestore:"dealId"`
	SenderID  string    `json:"senderId" firestore:"senderId"`
	Content   string    `json:"content" firestore:"content"`
	Read      bool      `json:"read" firestore:"read"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}
