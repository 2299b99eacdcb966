package usecase

import "context"

// Broadcaster fans events out to connected clients.
type Broadcaster interface {
	BroadcastToDeal(dealID, event string, payload interface{})
	SendToUser(userID, event string, payload interface{})
}

type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}
