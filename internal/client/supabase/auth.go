package supabase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

const (
	authPath = "/auth/v1"

	pkceVerifierKey = "auth.pkce_verifier"

	defaultRefreshMargin = 60 * time.Second
	refreshRetryDelay    = 10 * time.Second
)

// Listener receives session changes. It is called synchronously and must not block.
type Listener func(event models.AuthEvent, user *models.User)

// AuthClient is a GoTrue client holding one user session.
type AuthClient struct {
	transport
	store         metadata.Repository
	logger        logging.Logger
	now           func() time.Time
	refreshMargin time.Duration
	retryDelay    time.Duration
	redirectURL   string

	refreshMu sync.Mutex

	mu              sync.Mutex
	session         *Session
	loaded          bool
	pendingVerifier string
	listeners       map[int]Listener
	nextID          int
	wake            chan struct{}
}

type Option func(*AuthClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *AuthClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *AuthClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRedirectURL sets redirect_to for OAuth and password recovery links.
func WithRedirectURL(u string) Option {
	return func(c *AuthClient) { c.redirectURL = u }
}

// WithRefreshMargin sets how long before expiry a token is renewed.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *AuthClient) { c.refreshMargin = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *AuthClient) { c.now = now }
}

// NewAuthClient returns a client for the project at baseURL. store persists
// the session between runs; nil keeps it in memory only.
func NewAuthClient(baseURL, anonKey string, store metadata.Repository, opts ...Option) *AuthClient {
	c := &AuthClient{
		transport:     newTransport(baseURL, anonKey, nil),
		store:         store,
		logger:        logging.Nop(),
		now:           time.Now,
		refreshMargin: defaultRefreshMargin,
		retryDelay:    refreshRetryDelay,
		listeners:     make(map[int]Listener),
		wake:          make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "supabase-auth")
	return c
}

// OnSessionChange registers l for every future session change. The returned
// function unsubscribes; calling it more than once is harmless.
func (c *AuthClient) OnSessionChange(l func(event models.AuthEvent, user *models.User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *AuthClient) emit(event models.AuthEvent, user *models.User) {
	c.mu.Lock()
	ls := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.mu.Unlock()

	for _, l := range ls {
		l(event, user)
	}
}

// currentSession returns the in-memory session, loading the persisted one on first use.
func (c *AuthClient) currentSession(ctx context.Context) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loaded = true
		if c.store != nil {
			var s Session
			ok, err := metadata.LoadJSON(ctx, c.store, common.AuthSessionKey, &s)
			if err != nil {
				c.logger.Warn(ctx, "persisted session unreadable", "err", err)
			} else if ok && s.AccessToken != "" {
				c.session = &s
			}
		}
	}
	return c.session
}

func (c *AuthClient) setSession(ctx context.Context, s *Session, event models.AuthEvent) *models.User {
	s.normalize(c.now())

	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()

	if c.store != nil {
		if err := metadata.StoreJSON(ctx, c.store, common.AuthSessionKey, s); err != nil {
			c.logger.Error(ctx, "persist session failed", "err", err)
		}
	}
	c.poke()

	user := s.UserModel()
	c.emit(event, user)
	return user
}

func (c *AuthClient) clearSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	c.loaded = true
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, common.AuthSessionKey); err != nil {
			c.logger.Error(ctx, "forget session failed", "err", err)
		}
	}
	c.poke()
}

func (c *AuthClient) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// margin is the refresh margin, capped at half of a short-lived grant.
func (c *AuthClient) margin(s *Session) time.Duration {
	m := c.refreshMargin
	if s.ExpiresIn > 0 {
		if half := time.Duration(s.ExpiresIn) * time.Second / 2; half < m {
			m = half
		}
	}
	return m
}

func (c *AuthClient) expiring(s *Session) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !c.now().Before(exp.Add(-c.margin(s)))
}

// ensureFresh returns the current session, refreshing it first when it is
// about to expire. Rejected refresh tokens end the session.
func (c *AuthClient) ensureFresh(ctx context.Context) (*Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s := c.currentSession(ctx)
	if s == nil || !c.expiring(s) {
		return s, nil
	}

	ns, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		if isRejected(err) {
			c.logger.Warn(ctx, "refresh token rejected; signing out", "err", err)
			c.clearSession(ctx)
			c.emit(models.EventSignedOut, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.setSession(ctx, ns, models.EventTokenRefreshed)
	return ns, nil
}

// GetSession returns the signed-in user, or nil when there is none.
func (c *AuthClient) GetSession(ctx context.Context) (*models.User, error) {
	s, err := c.ensureFresh(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return s.UserModel(), nil
}

// AccessToken returns a non-expired access token for the signed-in user.
func (c *AuthClient) AccessToken(ctx context.Context) (string, error) {
	s, err := c.ensureFresh(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrNoSession
	}
	return s.AccessToken, nil
}

func (c *AuthClient) grant(ctx context.Context, grantType string, body any) (*Session, error) {
	q := url.Values{"grant_type": {grantType}}
	var s Session
	if err := c.call(ctx, http.MethodPost, authPath+"/token", q, body, "", nil, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", common.ErrInvalidToken)
	}
	return &s, nil
}

// SignInWithPassword starts a session for email/password credentials.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*models.User, error) {
	s, err := c.grant(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return c.setSession(ctx, s, models.EventSignedIn), nil
}

type signUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

type signUpResponse struct {
	Session
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// SignUp registers a new account. When the project requires email
// confirmation no session is started and signedIn is false.
func (c *AuthClient) SignUp(ctx context.Context, email, password, fullName string) (user *models.User, signedIn bool, err error) {
	req := signUpRequest{Email: email, Password: password}
	if fullName != "" {
		req.Data = map[string]string{"full_name": fullName}
	}

	q := url.Values{}
	if c.redirectURL != "" {
		q.Set("redirect_to", c.redirectURL)
	}

	var resp signUpResponse
	if err := c.call(ctx, http.MethodPost, authPath+"/signup", q, req, "", nil, &resp); err != nil {
		return nil, false, err
	}

	if resp.AccessToken != "" {
		s := resp.Session
		return c.setSession(ctx, &s, models.EventSignedIn), true, nil
	}

	u := &authUser{ID: resp.ID, Email: resp.Email, UserMetadata: resp.UserMetadata}
	if resp.User != nil {
		u = resp.User
	}
	return u.toModel(), false, nil
}

// RequestPasswordReset asks the project to email a recovery link.
func (c *AuthClient) RequestPasswordReset(ctx context.Context, email string) error {
	q := url.Values{}
	if c.redirectURL != "" {
		q.Set("redirect_to", c.redirectURL)
	}
	return c.call(ctx, http.MethodPost, authPath+"/recover", q, map[string]string{"email": email}, "", nil, nil)
}

// SignInWithOAuth returns the provider authorization URL for a PKCE flow.
// The code verifier is kept until ExchangeCode completes the flow.
func (c *AuthClient) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	if provider == "" {
		return "", errors.New("oauth provider is required")
	}

	verifier, err := common.MakeRandHexString(32)
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	if c.store != nil {
		if err := c.store.Set(ctx, pkceVerifierKey, []byte(verifier)); err != nil {
			return "", err
		}
	}
	c.mu.Lock()
	c.pendingVerifier = verifier
	c.mu.Unlock()

	q := url.Values{
		"provider":              {provider},
		"code_challenge":        {codeChallenge(verifier)},
		"code_challenge_method": {"s256"},
	}
	if c.redirectURL != "" {
		q.Set("redirect_to", c.redirectURL)
	}
	return c.baseURL + authPath + "/authorize?" + q.Encode(), nil
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ExchangeCode completes a PKCE sign-in. input is either the bare code or
// the full callback URL.
func (c *AuthClient) ExchangeCode(ctx context.Context, input string) (*models.User, error) {
	code, err := parseAuthCode(input)
	if err != nil {
		return nil, err
	}

	verifier := c.verifier(ctx)
	if verifier == "" {
		return nil, ErrNoPKCE
	}

	s, err := c.grant(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pendingVerifier = ""
	c.mu.Unlock()
	if c.store != nil {
		if err := c.store.Delete(ctx, pkceVerifierKey); err != nil {
			c.logger.Warn(ctx, "forget code verifier failed", "err", err)
		}
	}

	return c.setSession(ctx, s, models.EventSignedIn), nil
}

func (c *AuthClient) verifier(ctx context.Context) string {
	c.mu.Lock()
	v := c.pendingVerifier
	c.mu.Unlock()
	if v != "" || c.store == nil {
		return v
	}
	b, err := c.store.Get(ctx, pkceVerifierKey)
	if err != nil {
		c.logger.Warn(ctx, "read code verifier failed", "err", err)
		return ""
	}
	return string(b)
}

func parseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoCode
	}
	if !strings.Contains(input, "=") {
		return input, nil
	}

	raw := input
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("parse callback: %w", err)
	}
	if desc := firstNonEmpty(q.Get("error_description"), q.Get("error")); desc != "" {
		return "", &APIError{Status: http.StatusUnauthorized, Code: q.Get("error"), Message: desc}
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// SignOut revokes the session server-side and forgets it locally. A token
// the server no longer accepts still counts as signed out; any other
// failure leaves the session in place.
func (c *AuthClient) SignOut(ctx context.Context) error {
	s := c.currentSession(ctx)
	if s != nil {
		err := c.call(ctx, http.MethodPost, authPath+"/logout", nil, nil, s.AccessToken, nil, nil)
		if err != nil && !isRejected(err) && !isNotFound(err) {
			return err
		}
	}

	c.clearSession(ctx)
	c.emit(models.EventSignedOut, nil)
	return nil
}

func isNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// AutoRefresh keeps the session fresh until ctx is done. It sleeps until
// shortly before the access token expires, refreshes it and emits
// TOKEN_REFRESHED. Session changes made meanwhile reschedule the wait.
func (c *AuthClient) AutoRefresh(ctx context.Context) error {
	for {
		wait, ok := c.nextRefreshIn(ctx)

		var fire <-chan time.Time
		var t *time.Timer
		if ok {
			t = time.NewTimer(wait)
			fire = t.C
		}

		select {
		case <-ctx.Done():
			stopTimer(t)
			return nil
		case <-c.wake:
			stopTimer(t)
			continue
		case <-fire:
		}

		if _, err := c.ensureFresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn(ctx, "token refresh failed; will retry", "err", err, "retry_in", c.retryDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-c.wake:
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *AuthClient) nextRefreshIn(ctx context.Context) (time.Duration, bool) {
	s := c.currentSession(ctx)
	if s == nil {
		return 0, false
	}
	exp := s.Expiry()
	if exp.IsZero() {
		return 0, false
	}
	d := exp.Add(-c.margin(s)).Sub(c.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
