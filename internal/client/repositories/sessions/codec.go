package sessions

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

func encodeMessages(msgs []models.Message) (string, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(b), nil
}

func decodeMessages(raw []byte) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(raw) == 0 {
		return msgs, nil
	}
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}
