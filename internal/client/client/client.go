package client

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Client is the transport contract for the sync API. Every call takes the
// server base URL explicitly because it belongs to the credential, not to
// the client.
type Client interface {
	Login(ctx context.Context, server string, req models.LoginRequest) (*models.LoginResponse, error)
	RefreshToken(ctx context.Context, server, refreshToken, deviceID string) (string, error)
	Logout(ctx context.Context, server, accessToken, deviceID string) error
	Sync(ctx context.Context, server, accessToken string, req *models.SyncRequest) (*models.SyncResponse, error)
}
