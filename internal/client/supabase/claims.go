package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// Claims is the subset of a Supabase access token the client reads.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ParseClaims decodes token without verifying its signature.
func ParseClaims(token string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return c, nil
}

// User maps the claims to an identity.
func (c *Claims) User() *models.User {
	return &models.User{
		ID:          c.Subject,
		Email:       c.Email,
		DisplayName: firstNonEmpty(c.UserMetadata.FullName, c.UserMetadata.Name),
	}
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
