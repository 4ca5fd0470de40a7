package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// fakeProvider is a scriptable AuthProvider.
type fakeProvider struct {
	mu           sync.Mutex
	getSession   func(ctx context.Context) (*models.User, error)
	lookups      int
	listener     func(models.AuthEvent, *models.User)
	subscribes   int
	unsubscribes int
	signOutErr   error
	signOuts     int
}

func (p *fakeProvider) GetSession(ctx context.Context) (*models.User, error) {
	p.mu.Lock()
	p.lookups++
	fn := p.getSession
	p.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (p *fakeProvider) OnSessionChange(l func(models.AuthEvent, *models.User)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribes++
	p.listener = l
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.unsubscribes++
		p.listener = nil
	}
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	err := p.signOutErr
	l := p.listener
	p.mu.Unlock()
	if err == nil && l != nil {
		l(models.EventSignedOut, nil)
	}
	return err
}

func (p *fakeProvider) emit(e models.AuthEvent, u *models.User) {
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l(e, u)
	}
}

func (p *fakeProvider) counts() (lookups, subscribes, unsubscribes, signOuts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookups, p.subscribes, p.unsubscribes, p.signOuts
}

// fakeBypass is an in-memory BypassStore.
type fakeBypass struct {
	mu         sync.Mutex
	on         bool
	enableErr  error
	disableErr error
	enables    int
	disables   int
}

func (b *fakeBypass) Enabled(context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on, nil
}

func (b *fakeBypass) Enable(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enables++
	if b.enableErr != nil {
		return b.enableErr
	}
	b.on = true
	return nil
}

func (b *fakeBypass) Disable(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disables++
	if b.disableErr != nil {
		return b.disableErr
	}
	b.on = false
	return nil
}

func (b *fakeBypass) isOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

// fakeAPI records sends and answers through reply.
type fakeAPI struct {
	mu      sync.Mutex
	reply   func(ctx context.Context, text string, img *models.Image) (*models.ChatReply, error)
	calls   []apiCall
	started chan struct{}
}

type apiCall struct {
	text    string
	image   *models.Image
	history []models.HistoryItem
}

func (a *fakeAPI) SendMessage(ctx context.Context, text string, history []models.HistoryItem) (*models.ChatReply, error) {
	return a.do(ctx, text, nil, history)
}

func (a *fakeAPI) SendMessageWithImage(ctx context.Context, text string, img *models.Image, history []models.HistoryItem) (*models.ChatReply, error) {
	return a.do(ctx, text, img, history)
}

func (a *fakeAPI) do(ctx context.Context, text string, img *models.Image, history []models.HistoryItem) (*models.ChatReply, error) {
	a.mu.Lock()
	a.calls = append(a.calls, apiCall{text: text, image: img, history: history})
	fn := a.reply
	started := a.started
	a.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if fn == nil {
		return &models.ChatReply{Response: "ok: " + text, Timestamp: "2026-01-01T00:00:00.000Z"}, nil
	}
	return fn(ctx, text, img)
}

func (a *fakeAPI) recorded() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apiCall(nil), a.calls...)
}

// memStore is an in-memory sessions.Repository with failure injection.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]models.Session
	seq       int
	creates   int
	updates   int
	createErr error
	updateErr error
	deleteErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]models.Session{}} }

func (s *memStore) Create(_ context.Context, userID, title string, msgs []models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	row := models.Session{
		ID: fmt.Sprintf("s-%d", s.seq), UserID: userID, Title: title,
		Messages:  append([]models.Message{}, msgs...),
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.rows[row.ID] = row
	return &row, nil
}

func (s *memStore) Update(_ context.Context, id, title string, msgs []models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	row.Title = title
	row.Messages = append([]models.Message{}, msgs...)
	row.UpdatedAt = time.Now()
	s.rows[id] = row
	return &row, nil
}

func (s *memStore) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Session{}
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &row, nil
}

func (s *memStore) put(row models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.ID] = row
}

func (s *memStore) get(id string) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

func (s *memStore) stats() (rows, creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), s.creates, s.updates
}

// identity is a settable IdentitySource.
type identity struct {
	mu   sync.Mutex
	user *models.User
}

func (i *identity) CurrentUser() *models.User {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.user
}

func (i *identity) set(u *models.User) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.user = u
}

// fakeArchive records uploads.
type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) NewKey() string { return "chat-images/2026/01/01/fixed" }

func (a *fakeArchive) Put(_ context.Context, key string, _ *models.Image) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return a.err
}

func (a *fakeArchive) uploaded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.keys...)
}

var errBoom = errors.New("boom")
