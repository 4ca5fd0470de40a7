package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) AccessToken(context.Context) (string, error) { return s.token, s.err }

func row(id, title string, updated time.Time) map[string]any {
	return map[string]any{
		"id":         id,
		"user_id":    "u-1",
		"title":      title,
		"messages":   []any{map[string]any{"id": "m1", "role": "user", "content": "hi", "timestamp": "2026-01-02T03:04:05Z"}},
		"created_at": updated.Add(-time.Hour).Format(time.RFC3339Nano),
		"updated_at": updated.Format(time.RFC3339Nano),
	}
}

func newStore(t *testing.T, h http.HandlerFunc) *SessionStore {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	st := NewSessionStore(ts.URL, anonKey, staticToken{token: "user-jwt"}, ts.Client())
	st.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return st
}

func TestSessionStore_Create(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, sessionsPath, r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))

		body := readBody(t, r)
		assert.Equal(t, "u-1", body["user_id"])
		assert.Equal(t, "Hello", body["title"])
		assert.Equal(t, []any{}, body["messages"])
		assert.Equal(t, "2026-03-01T12:00:00Z", body["created_at"])
		assert.NotContains(t, body, "id")

		writeJSON(w, http.StatusCreated, []any{row("s-1", "Hello", updated)})
	})

	s, err := st.Create(context.Background(), "u-1", "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "Hello", s.Title)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, models.RoleUser, s.Messages[0].Role)
	assert.True(t, s.UpdatedAt.Equal(updated))
}

func TestSessionStore_Update(t *testing.T) {
	st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.s-1", r.URL.Query().Get("id"))
		body := readBody(t, r)
		assert.Equal(t, "Renamed", body["title"])
		assert.NotContains(t, body, "user_id")
		assert.NotContains(t, body, "created_at")
		writeJSON(w, http.StatusOK, []any{row("s-1", "Renamed", time.Now())})
	})

	s, err := st.Update(context.Background(), "s-1", "Renamed", []models.Message{{ID: "m1", Role: models.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", s.Title)
}

func TestSessionStore_UpdateMissingRow(t *testing.T) {
	st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})

	_, err := st.Update(context.Background(), "gone", "x", nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSessionStore_ListByUser(t *testing.T) {
	now := time.Now().UTC()
	st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "eq.u-1", q.Get("user_id"))
		assert.Equal(t, "updated_at.desc", q.Get("order"))
		writeJSON(w, http.StatusOK, []any{
			row("s-2", "Newer", now),
			map[string]any{"id": "s-1", "user_id": "u-1", "title": "Broken", "messages": nil, "updated_at": "garbage"},
		})
	})

	list, err := st.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s-2", list[0].ID)
	assert.True(t, list[1].UpdatedAt.IsZero())
	assert.NotNil(t, list[1].Messages)
	assert.Empty(t, list[1].Messages)
}

func TestSessionStore_DeleteAndGet(t *testing.T) {
	st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "eq.s-1":
			writeJSON(w, http.StatusOK, []any{row("s-1", "Kept", time.Now())})
		default:
			writeJSON(w, http.StatusOK, []any{})
		}
	})

	require.NoError(t, st.Delete(context.Background(), "s-1"))
	require.ErrorIs(t, st.Delete(context.Background(), "s-9"), common.ErrNotFound)

	s, err := st.GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Kept", s.Title)

	_, err = st.GetByID(context.Background(), "s-9")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSessionStore_Errors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		st := newStore(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "PGRST301", "message": "JWT expired"})
		})
		_, err := st.ListByUser(context.Background(), "u-1")
		require.ErrorIs(t, err, common.ErrUnauthorized)

		var ae *APIError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "PGRST301", ae.Code)
		assert.Equal(t, "JWT expired", ae.Message)
	})

	t.Run("no session", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request must not be sent without a token")
		}))
		defer ts.Close()

		st := NewSessionStore(ts.URL, anonKey, staticToken{err: ErrNoSession}, ts.Client())
		_, err := st.Create(context.Background(), "u-1", "x", nil)
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("anon role without token source", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer "+anonKey, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, []any{})
		}))
		defer ts.Close()

		st := NewSessionStore(ts.URL, anonKey, nil, ts.Client())
		list, err := st.ListByUser(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
