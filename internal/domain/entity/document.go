package entity

import "time"

type Document struct {
	ID          string    `json:"id" firestore:"id"`
	DealID      string    `json:"dealId" firestore:"dealId"`
	UploaderID  string    `json:"uploaderId" firestore:"uploaderId"`
	Name        string    `json:"name" firestore:"name"`
	URL         string    `json:"url" firestore:"url"`
	ObjectName  string    `json:"-" firestore:"objectName"`
	ContentType string    `json:"contentType" firestore:"contentType"`
	Size        int64     `json:"size" firestore:"size"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
}
