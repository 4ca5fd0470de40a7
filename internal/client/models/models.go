// Package models defines client-side data models used by the gophchat CLI.
package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// User is the signed-in identity as reported by the auth provider, or the
// synthesized test identity in skip-auth mode.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// AuthEvent names a session change pushed by the auth provider.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthState is the published snapshot of the auth state machine.
// Error is empty unless the last resolution failed.
type AuthState struct {
	User    *User
	Loading bool
	Error   string
}

// Recommendation is a learning-resource suggestion attached to an assistant reply.
type Recommendation struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	URL           string   `json:"url"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	EstimatedTime string   `json:"estimatedTime"`
	Tags          []string `json:"tags"`
}

// Message is a single chat transcript entry. Messages are never mutated once
// appended. A nil Recommendations slice means the message carried none,
// which differs from an empty list.
type Message struct {
	ID              string           `json:"id"`
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	Timestamp       string           `json:"timestamp"`
	HasImage        bool             `json:"hasImage,omitempty"`
	ImageKey        string           `json:"imageKey,omitempty"`
	IsError         bool             `json:"isError,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// HistoryItem is the {role, content} projection of a Message sent to the chat API.
type HistoryItem struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History maps messages to the role/content pairs understood by the chat API.
func History(msgs []Message) []HistoryItem {
	out := make([]HistoryItem, len(msgs))
	for i, m := range msgs {
		out[i] = HistoryItem{Role: m.Role, Content: m.Content}
	}
	return out
}

// Session is a persisted chat transcript.
type Session struct {
	ID        string
	UserID    string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatReply is what the chat API returns for a successful send.
type ChatReply struct {
	Response        string           `json:"response"`
	Timestamp       string           `json:"timestamp"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Health is the chat backend's health report.
type Health struct {
	GeminiConfigured bool   `json:"geminiConfigured"`
	Timestamp        string `json:"timestamp"`
}

// Image is an attachment staged for the next send.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}
