package entity

import "time"

type NotificationType string

const (
	NotificationDeal     NotificationType = "deal"
	NotificationMessage  NotificationType = "message"
	NotificationPrice    NotificationType = "price"
	NotificationDocument NotificationType = "document"
	NotificationStatus   NotificationType = "status"
)

type Notification struct {
	ID        string           `json:"id" firestore:"id"`
	UserID    string           `json:"userId" firestore:"userId"`
	Type      NotificationType `json:"type" firestore:"type"`
	Content   string           `json:"content" firestore:"content"`
	DealID    string           `json:"dealId,omitempty" firestore:"dealId,omitempty"`
	Read      bool             `json:"read" firestore:"read"`
	CreatedAt time.Time        `json:"createdAt" firestore:"createdAt"`
}
