package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPClient_SendMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What is SQL?", body["message"])
		assert.Equal(t, []any{
			map[string]any{"role": "user", "content": "hi"},
			map[string]any{"role": "assistant", "content": "hello"},
		}, body["conversationHistory"])

		writeJSON(w, http.StatusOK, map[string]any{
			"response":  "SQL is a query language.",
			"timestamp": "2026-01-01T10:00:00Z",
			"recommendations": []any{
				map[string]any{"id": "r1", "title": "SQL basics", "type": "course", "tags": []any{"sql"}},
			},
		})
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL+"/", ts.Client(), nil)
	reply, err := c.SendMessage(context.Background(), "What is SQL?", []models.HistoryItem{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)

	want := &models.ChatReply{
		Response:  "SQL is a query language.",
		Timestamp: "2026-01-01T10:00:00Z",
		Recommendations: []models.Recommendation{
			{ID: "r1", Title: "SQL basics", Type: "course", Tags: []string{"sql"}},
		},
	}
	if diff := cmp.Diff(want, reply); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClient_SendMessage_NilHistoryIsEmptyArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":"hi","conversationHistory":[]}`, string(b))
		writeJSON(w, http.StatusOK, map[string]any{"response": "ok"})
	}))
	defer ts.Close()

	reply, err := NewHTTPClient(ts.URL, ts.Client(), nil).SendMessage(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Response)
	assert.Nil(t, reply.Recommendations)
}

func TestHTTPClient_SendMessageWithImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/image", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "what is this?", r.FormValue("message"))
		assert.JSONEq(t, `[{"role":"user","content":"earlier"}]`, r.FormValue("conversationHistory"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "shot.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, png, data)

		writeJSON(w, http.StatusOK, map[string]any{"response": "a screenshot"})
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, ts.Client(), nil)
	reply, err := c.SendMessageWithImage(context.Background(), "what is this?",
		&models.Image{Name: "shot.png", ContentType: "image/png", Data: png},
		[]models.HistoryItem{{Role: models.RoleUser, Content: "earlier"}})
	require.NoError(t, err)
	assert.Equal(t, "a screenshot", reply.Response)
}

func TestHTTPClient_SendMessageWithImage_NoImageFallsBackToJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"response": "plain"})
	}))
	defer ts.Close()

	reply, err := NewHTTPClient(ts.URL, ts.Client(), nil).SendMessageWithImage(context.Background(), "hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", reply.Response)
}

func TestHTTPClient_GetRecommendations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recommendations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "python", q.Get("topic"))
		assert.Equal(t, "beginner", q.Get("difficulty"))
		assert.Equal(t, "", q.Get("type"))
		assert.Equal(t, "2", q.Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"recommendations": []any{
			map[string]any{"id": "a", "title": "A"},
			map[string]any{"id": "b", "title": "B"},
		}})
	}))
	defer ts.Close()

	recs, err := NewHTTPClient(ts.URL, ts.Client(), nil).GetRecommendations(context.Background(),
		RecommendationQuery{Topic: "python", Difficulty: "beginner", Limit: 2})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[1].ID)
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/health", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"geminiConfigured": true, "timestamp": "2026-01-01T00:00:00Z"})
	}))
	defer ts.Close()

	h, err := NewHTTPClient(ts.URL, ts.Client(), nil).HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, h.GeminiConfigured)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      any
		rateLimit bool
		message   string
		errorText string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: map[string]any{"error": "slow down"}, rateLimit: true, errorText: "slow down"},
		{name: "server message", status: http.StatusInternalServerError, body: map[string]any{"message": "model overloaded"}, message: "model overloaded"},
		{name: "bad request error", status: http.StatusBadRequest, body: map[string]any{"error": "Message is required"}, errorText: "Message is required"},
		{name: "non json body", status: http.StatusBadGateway, body: "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if s, ok := tt.body.(string); ok {
					w.WriteHeader(tt.status)
					_, _ = io.WriteString(w, s)
					return
				}
				writeJSON(w, tt.status, tt.body)
			}))
			defer ts.Close()

			_, err := NewHTTPClient(ts.URL, ts.Client(), nil).SendMessage(context.Background(), "hi", nil)
			require.Error(t, err)

			var he *HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tt.status, he.Status)
			assert.Equal(t, tt.message, he.Message)
			assert.Equal(t, tt.errorText, he.ErrorText)
			assert.Equal(t, tt.rateLimit, errors.Is(err, ErrRateLimited))
			assert.False(t, errors.Is(err, ErrUnavailable))
		})
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := NewHTTPClient(url, nil, nil).HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	var te *TransportError
	assert.True(t, errors.As(err, &te))
}
