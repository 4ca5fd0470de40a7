package services

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// BypassStore persists the skip-auth testing override.
// metadata.SkipAuthFlag is the local implementation.
type BypassStore interface {
	Enabled(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// TestUser returns the identity used while authentication is skipped.
func TestUser() *models.User {
	return &models.User{
		ID:          common.BypassUserID,
		Email:       "test@example.com",
		DisplayName: "Test User",
	}
}
