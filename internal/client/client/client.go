package client

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// RecommendationQuery narrows GetRecommendations. Empty fields are omitted.
type RecommendationQuery struct {
	Topic      string
	Difficulty string
	Type       string
	Limit      int
}

// Client is the contract the chat front end relies on to talk to the chat backend.
type Client interface {
	SendMessage(ctx context.Context, text string, history []models.HistoryItem) (*models.ChatReply, error)
	SendMessageWithImage(ctx context.Context, text string, image *models.Image, history []models.HistoryItem) (*models.ChatReply, error)
	GetRecommendations(ctx context.Context, q RecommendationQuery) ([]models.Recommendation, error)
	HealthCheck(ctx context.Context) (*models.Health, error)
}
