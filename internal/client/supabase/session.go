package supabase

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// Session is a GoTrue token grant.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	ExpiresAt    int64     `json:"expires_at,omitempty"`
	RefreshToken string    `json:"refresh_token"`
	User         *authUser `json:"user,omitempty"`
}

type authUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

func (u *authUser) toModel() *models.User {
	return &models.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: firstNonEmpty(u.UserMetadata.FullName, u.UserMetadata.Name),
	}
}

// Expiry is expires_at when the grant carries it, else the token's exp claim.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if c, err := ParseClaims(s.AccessToken); err == nil {
		return c.Expiry()
	}
	return time.Time{}
}

// UserModel returns the session's user, falling back to the token claims.
func (s *Session) UserModel() *models.User {
	if s.User != nil && s.User.ID != "" {
		return s.User.toModel()
	}
	if c, err := ParseClaims(s.AccessToken); err == nil && c.Subject != "" {
		return c.User()
	}
	return nil
}

// normalize fills ExpiresAt from ExpiresIn for grants that omit it.
func (s *Session) normalize(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}
