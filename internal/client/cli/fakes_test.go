package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

var (
	ada     = &models.User{ID: "u-1", Email: "ada@example.com", DisplayName: "Ada"}
	errBoom = errors.New("boom")
)

// fakeProvider is an AuthProvider that reports a fixed user.
type fakeProvider struct {
	mu       sync.Mutex
	user     *models.User
	listener func(models.AuthEvent, *models.User)
}

func (p *fakeProvider) GetSession(context.Context) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, nil
}

func (p *fakeProvider) OnSessionChange(l func(models.AuthEvent, *models.User)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.listener = nil
	}
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.emit(models.EventSignedOut, nil)
	return nil
}

func (p *fakeProvider) emit(e models.AuthEvent, u *models.User) {
	p.mu.Lock()
	p.user = u
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l(e, u)
	}
}

// fakeAPI is a scriptable client.Client.
type fakeAPI struct {
	mu        sync.Mutex
	reply     *models.ChatReply
	sendErr   error
	recs      []models.Recommendation
	recsErr   error
	lastQuery client.RecommendationQuery
	health    *models.Health
	healthErr error
	sent      []string
}

func (f *fakeAPI) SendMessage(_ context.Context, text string, _ []models.HistoryItem) (*models.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	r := *f.reply
	return &r, nil
}

func (f *fakeAPI) SendMessageWithImage(ctx context.Context, text string, _ *models.Image, h []models.HistoryItem) (*models.ChatReply, error) {
	return f.SendMessage(ctx, "[image] "+text, h)
}

func (f *fakeAPI) GetRecommendations(_ context.Context, q client.RecommendationQuery) ([]models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.recs, f.recsErr
}

func (f *fakeAPI) HealthCheck(context.Context) (*models.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	h := models.Health{GeminiConfigured: true}
	if f.health != nil {
		h = *f.health
	}
	return &h, nil
}

// memStore is an in-memory sessions.Repository.
type memStore struct {
	mu     sync.Mutex
	byID   map[string]models.Session
	nextID int
}

func newMemStore(seed ...models.Session) *memStore {
	s := &memStore{byID: map[string]models.Session{}}
	for _, x := range seed {
		s.byID[x.ID] = x
	}
	return s
}

func (s *memStore) Create(_ context.Context, userID, title string, msgs []models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	x := models.Session{ID: fmt.Sprintf("s-new-%d", s.nextID), UserID: userID, Title: title, Messages: msgs, UpdatedAt: time.Now()}
	s.byID[x.ID] = x
	return &x, nil
}

func (s *memStore) Update(_ context.Context, id, title string, msgs []models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, ok := s.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	x.Title, x.Messages, x.UpdatedAt = title, msgs, time.Now()
	s.byID[id] = x
	return &x, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Session{}
	for _, x := range s.byID {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, ok := s.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &x, nil
}

func (s *memStore) get(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, ok := s.byID[id]
	return x, ok
}

// fakeAccounts is a scriptable Authenticator that drives a fakeProvider
// the way the real auth client emits events.
type fakeAccounts struct {
	provider *fakeProvider

	mu        sync.Mutex
	calls     []string
	signInErr error
	confirm   bool
}

func (f *fakeAccounts) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAccounts) SignInWithPassword(_ context.Context, email, password string) (*models.User, error) {
	f.record("signin:" + email + ":" + password)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	u := &models.User{ID: "u-" + email, Email: email}
	f.provider.emit(models.EventSignedIn, u)
	return u, nil
}

func (f *fakeAccounts) SignUp(_ context.Context, email, password, fullName string) (*models.User, bool, error) {
	f.record("signup:" + email + ":" + password + ":" + fullName)
	u := &models.User{ID: "u-" + email, Email: email, DisplayName: fullName}
	if f.confirm {
		return u, false, nil
	}
	f.provider.emit(models.EventSignedIn, u)
	return u, true, nil
}

func (f *fakeAccounts) RequestPasswordReset(_ context.Context, email string) error {
	f.record("reset:" + email)
	return nil
}

func (f *fakeAccounts) SignInWithOAuth(_ context.Context, provider string) (string, error) {
	f.record("oauth:" + provider)
	return "https://auth.example.com/authorize?provider=" + provider, nil
}

func (f *fakeAccounts) ExchangeCode(_ context.Context, input string) (*models.User, error) {
	f.record("exchange:" + input)
	f.provider.emit(models.EventSignedIn, ada)
	return ada, nil
}

func (f *fakeAccounts) AutoRefresh(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeAccounts) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeLinker presigns by prefixing the key.
type fakeLinker struct{ err error }

func (l fakeLinker) PresignGet(_ context.Context, key string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "https://s3.example.com/" + key + "?sig=1", nil
}

// harness is an App over real services and fake edges.
type harness struct {
	app      *App
	out      *bytes.Buffer
	api      *fakeAPI
	store    *memStore
	provider *fakeProvider
	accounts *fakeAccounts
	auth     *services.AuthStateMachine
	chat     *services.ChatController
}

type harnessOpts struct {
	user     *models.User
	input    string
	store    *memStore
	accounts bool
	images   ImageLinker
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()

	h := &harness{
		out:      &bytes.Buffer{},
		api:      &fakeAPI{reply: &models.ChatReply{Response: "A closure captures variables.", Timestamp: "2026-01-02T03:04:06.000Z"}},
		store:    o.store,
		provider: &fakeProvider{user: o.user},
	}
	if h.store == nil {
		h.store = newMemStore()
	}

	h.auth = services.NewAuthStateMachine(h.provider, nil, services.AuthOptions{}, nil)
	chat, err := services.NewChatController(h.api, h.store, h.auth, services.ChatOptions{AutosaveDelay: time.Hour}, nil)
	require.NoError(t, err)
	h.chat = chat

	deps := Deps{Auth: h.auth, Chat: h.chat, API: h.api, Images: o.images}
	if o.accounts {
		h.accounts = &fakeAccounts{provider: h.provider}
		deps.Accounts = h.accounts
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HealthCheckInterval = 0

	h.app = NewApp(cfg, deps, strings.NewReader(o.input), h.out, nil)
	h.app.now = func() time.Time { return fixedNow }

	unsubscribe := h.auth.Subscribe(h.chat.HandleAuthState)
	h.auth.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.auth.WaitReady(ctx))

	t.Cleanup(func() {
		unsubscribe()
		_ = h.chat.Close()
		_ = h.auth.Close()
	})
	return h
}

var fixedNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}
