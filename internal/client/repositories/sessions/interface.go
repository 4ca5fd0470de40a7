package sessions

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// Repository describes CRUD operations for chat sessions.
type Repository interface {
	// Create inserts a new session and returns it with its assigned id.
	Create(ctx context.Context, userID, title string, messages []models.Message) (*models.Session, error)

	// Update replaces title and messages of an existing session and bumps updated_at.
	Update(ctx context.Context, id, title string, messages []models.Message) (*models.Session, error)

	// ListByUser returns the user's sessions, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// GetByID returns one session.
	GetByID(ctx context.Context, id string) (*models.Session, error)
}
