package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"dealroom/internal/domain/service"
)

const adminClaim = "admin"

// FirebaseAuthClient verifies Firebase ID tokens. The "admin" custom claim
// marks an elevated principal.
type FirebaseAuthClient struct {
	client *auth.Client
}

var _ service.TokenVerifier = (*FirebaseAuthClient)(nil)

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) Verify(ctx context.Context, token string) (*service.Identity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	elevated, _ := result.Claims[adminClaim].(bool)

	return &service.Identity{
		UserID:   result.UID,
		Elevated: elevated,
	}, nil
}

func (f *FirebaseAuthClient) TestConnection(ctx context.Context) error {
	_, err := f.client.GetUser(ctx, "health-check-probe")
	if err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}
