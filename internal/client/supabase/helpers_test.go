package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// memRepo is an in-memory metadata.Repository.
type memRepo struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemRepo() *memRepo { return &memRepo{m: map[string][]byte{}} }

func (r *memRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[key], nil
}

func (r *memRepo) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key] = value
	return nil
}

func (r *memRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key)
	return nil
}

func mintToken(t *testing.T, sub, email, name string, exp time.Time) string {
	t.Helper()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            email,
		UserMetadata:     UserMetadata{FullName: name},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func grantJSON(t *testing.T, access, refresh string, expiresAt time.Time, userID, email, name string) map[string]any {
	t.Helper()
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    expiresAt.Unix(),
		"refresh_token": refresh,
		"user": map[string]any{
			"id":            userID,
			"email":         email,
			"user_metadata": map[string]any{"full_name": name},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

type recordedEvent struct {
	event models.AuthEvent
	user  *models.User
}

// eventLog collects events delivered to an OnSessionChange listener.
type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
	ch     chan recordedEvent
}

func newEventLog() *eventLog { return &eventLog{ch: make(chan recordedEvent, 16)} }

func (l *eventLog) listen(e models.AuthEvent, u *models.User) {
	l.mu.Lock()
	l.events = append(l.events, recordedEvent{e, u})
	l.mu.Unlock()
	l.ch <- recordedEvent{e, u}
}

func (l *eventLog) all() []recordedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedEvent(nil), l.events...)
}
