package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

const sessionsPath = "/rest/v1/chat_sessions"

// TokenSource supplies the bearer token for row-level-security checks.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// SessionStore keeps chat sessions in the project's chat_sessions table.
type SessionStore struct {
	transport
	tokens TokenSource
	now    func() time.Time
}

var _ sessions.Repository = (*SessionStore)(nil)

// NewSessionStore returns a store for the project at baseURL. A nil tokens
// source authenticates as the anon role.
func NewSessionStore(baseURL, anonKey string, tokens TokenSource, hc *http.Client) *SessionStore {
	return &SessionStore{
		transport: newTransport(baseURL, anonKey, hc),
		tokens:    tokens,
		now:       time.Now,
	}
}

type sessionRow struct {
	ID        string           `json:"id,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Title     string           `json:"title"`
	Messages  []models.Message `json:"messages"`
	CreatedAt string           `json:"created_at,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

func (r sessionRow) toModel() models.Session {
	s := models.Session{ID: r.ID, UserID: r.UserID, Title: r.Title, Messages: r.Messages}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	// Unparseable timestamps stay zero; history grouping files them as older.
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, r.CreatedAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, r.UpdatedAt)
	return s
}

func (st *SessionStore) stamp() string {
	return st.now().UTC().Format(time.RFC3339Nano)
}

func (st *SessionStore) bearer(ctx context.Context) (string, error) {
	if st.tokens == nil {
		return "", nil
	}
	return st.tokens.AccessToken(ctx)
}

var returnRepresentation = http.Header{"Prefer": {"return=representation"}}

// rows sends one request and decodes the returned row set.
func (st *SessionStore) rows(ctx context.Context, method string, q url.Values, body any, hdr http.Header) ([]sessionRow, error) {
	token, err := st.bearer(ctx)
	if err != nil {
		return nil, err
	}
	var out []sessionRow
	if err := st.call(ctx, method, sessionsPath, q, body, token, hdr, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (st *SessionStore) single(ctx context.Context, method string, q url.Values, body any, hdr http.Header) (*models.Session, error) {
	rows, err := st.rows(ctx, method, q, body, hdr)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	s := rows[0].toModel()
	return &s, nil
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

func (st *SessionStore) Create(ctx context.Context, userID, title string, messages []models.Message) (*models.Session, error) {
	ts := st.stamp()
	row := sessionRow{UserID: userID, Title: title, Messages: nonNil(messages), CreatedAt: ts, UpdatedAt: ts}
	return st.single(ctx, http.MethodPost, url.Values{"select": {"*"}}, row, returnRepresentation)
}

func (st *SessionStore) Update(ctx context.Context, id, title string, messages []models.Message) (*models.Session, error) {
	row := sessionRow{Title: title, Messages: nonNil(messages), UpdatedAt: st.stamp()}
	q := url.Values{"id": {"eq." + id}, "select": {"*"}}
	return st.single(ctx, http.MethodPatch, q, row, returnRepresentation)
}

func (st *SessionStore) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	q := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + userID},
		"order":   {"updated_at.desc"},
	}
	rows, err := st.rows(ctx, http.MethodGet, q, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (st *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := st.single(ctx, http.MethodDelete, url.Values{"id": {"eq." + id}}, nil, returnRepresentation)
	return err
}

func (st *SessionStore) GetByID(ctx context.Context, id string) (*models.Session, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id}}
	return st.single(ctx, http.MethodGet, q, nil, nil)
}
