package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// DefaultAuthTimeout bounds the initial session lookup.
const DefaultAuthTimeout = 3 * time.Second

// NotConfiguredMessage is the AuthState error published when no provider is set.
const NotConfiguredMessage = "not configured"

// AuthProvider is the part of the auth provider the state machine relies on.
//
// Contract:
//   - GetSession: the signed-in user, or nil when there is none.
//   - OnSessionChange: registers a listener for pushed session events and
//     returns its unsubscribe function.
//   - SignOut: ends the provider session; the provider pushes SIGNED_OUT.
type AuthProvider interface {
	GetSession(ctx context.Context) (*models.User, error)
	OnSessionChange(listener func(event models.AuthEvent, user *models.User)) func()
	SignOut(ctx context.Context) error
}

// AuthOptions tune an AuthStateMachine.
type AuthOptions struct {
	// Timeout bounds the initial session lookup. Zero means DefaultAuthTimeout.
	Timeout time.Duration
	// Reload runs after a skip-auth sign-out. Nil means Restart.
	Reload func(ctx context.Context)
}

// AuthStateMachine derives the published AuthState. It starts loading,
// leaves loading exactly once per bootstrap attempt and is then updated by
// provider events and explicit transitions.
type AuthStateMachine struct {
	provider AuthProvider
	bypass   BypassStore
	timeout  time.Duration
	reload   func(ctx context.Context)
	logger   logging.Logger

	// pubMu keeps subscriber notifications in transition order.
	pubMu sync.Mutex

	mu          sync.Mutex
	state       models.AuthState
	started     bool
	alive       bool
	gen         uint64
	resolved    bool
	ready       chan struct{}
	override    bool
	subscribed  bool
	unsubscribe func()
	subs        map[int]func(models.AuthState)
	nextSub     int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAuthStateMachine builds a machine in the loading state. A nil provider
// means auth credentials are not configured; a nil bypass store disables
// persistence of the skip-auth flag.
func NewAuthStateMachine(provider AuthProvider, bypass BypassStore, opts AuthOptions, logger logging.Logger) *AuthStateMachine {
	if logger == nil {
		logger = logging.Nop()
	}
	m := &AuthStateMachine{
		provider: provider,
		bypass:   bypass,
		timeout:  opts.Timeout,
		reload:   opts.Reload,
		logger:   logger.With("component", "auth"),
		state:    models.AuthState{Loading: true},
		ready:    make(chan struct{}),
		subs:     make(map[int]func(models.AuthState)),
	}
	if m.timeout <= 0 {
		m.timeout = DefaultAuthTimeout
	}
	if m.reload == nil {
		m.reload = m.Restart
	}
	return m
}

// Start launches the bootstrap and returns immediately. Calls after the
// first are ignored. The machine lives until Close.
func (m *AuthStateMachine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.alive = true
	m.ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	gen := m.gen
	m.mu.Unlock()

	m.launch(gen)
}

// Restart discards the current state and bootstraps again.
func (m *AuthStateMachine) Restart(ctx context.Context) {
	m.pubMu.Lock()
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		m.pubMu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.resolved = false
	m.ready = make(chan struct{})
	m.state = models.AuthState{Loading: true}
	snap, subs := m.state, m.subscribers()
	m.mu.Unlock()
	notify(subs, snap)
	m.pubMu.Unlock()

	m.logger.Info(ctx, "auth state reloading")
	m.launch(gen)
}

func (m *AuthStateMachine) launch(gen uint64) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.bootstrap(gen)
	}()
}

func (m *AuthStateMachine) bootstrap(gen uint64) {
	ctx := m.ctx

	if m.bypassActive(ctx) {
		m.logger.Info(ctx, "skip-auth flag set; using test identity")
		m.settle(gen, models.AuthState{User: TestUser()})
		return
	}

	if m.provider == nil {
		m.logger.Warn(ctx, "auth provider not configured")
		m.settle(gen, models.AuthState{Error: NotConfiguredMessage})
		return
	}

	if !m.subscribe() {
		return
	}

	type lookup struct {
		user *models.User
		err  error
	}
	// not tracked by wg: Close must not wait on a provider that never answers
	result := make(chan lookup, 1)
	go func() {
		u, err := m.provider.GetSession(ctx)
		result <- lookup{u, err}
	}()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case r := <-result:
		if r.err != nil {
			m.logger.Error(ctx, "session lookup failed", "err", r.err)
			m.settle(gen, models.AuthState{Error: r.err.Error()})
			return
		}
		m.settle(gen, models.AuthState{User: r.user})
	case <-timer.C:
		m.logger.Warn(ctx, "session lookup timed out", "timeout", m.timeout)
		m.settle(gen, models.AuthState{})
	case <-ctx.Done():
	}
}

func (m *AuthStateMachine) bypassActive(ctx context.Context) bool {
	m.mu.Lock()
	override := m.override
	m.mu.Unlock()
	if override {
		return true
	}
	if m.bypass == nil {
		return false
	}
	on, err := m.bypass.Enabled(ctx)
	if err != nil {
		m.logger.Warn(ctx, "read skip-auth flag failed", "err", err)
		return false
	}
	return on
}

// subscribe registers the provider listener once per machine lifetime.
// It reports false when the machine was closed meanwhile.
func (m *AuthStateMachine) subscribe() bool {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return false
	}
	if m.subscribed {
		m.mu.Unlock()
		return true
	}
	m.subscribed = true
	m.mu.Unlock()

	unsub := m.provider.OnSessionChange(m.onEvent)

	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		unsub()
		return false
	}
	m.unsubscribe = unsub
	m.mu.Unlock()
	return true
}

func (m *AuthStateMachine) onEvent(event models.AuthEvent, user *models.User) {
	m.logger.Debug(m.ctx, "auth event", "event", event, "signed_in", user != nil)
	m.apply(models.AuthState{User: user})
}

// settle resolves bootstrap attempt gen. Results for a superseded attempt,
// an already resolved one or a closed machine are dropped.
func (m *AuthStateMachine) settle(gen uint64, st models.AuthState) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if !m.alive || gen != m.gen || m.resolved {
		m.mu.Unlock()
		return
	}
	snap, subs := m.setLocked(st)
	m.mu.Unlock()

	notify(subs, snap)
}

// apply overwrites the state regardless of bootstrap progress.
func (m *AuthStateMachine) apply(st models.AuthState) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	snap, subs := m.setLocked(st)
	m.mu.Unlock()

	notify(subs, snap)
}

func (m *AuthStateMachine) setLocked(st models.AuthState) (models.AuthState, []func(models.AuthState)) {
	st.Loading = false
	m.state = st
	if !m.resolved {
		m.resolved = true
		close(m.ready)
	}
	return m.state, m.subscribers()
}

func (m *AuthStateMachine) subscribers() []func(models.AuthState) {
	out := make([]func(models.AuthState), 0, len(m.subs))
	for i := 0; i < m.nextSub; i++ {
		if fn, ok := m.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []func(models.AuthState), st models.AuthState) {
	for _, fn := range subs {
		fn(st)
	}
}

// SignOut ends the session. In skip-auth mode it clears the flag and the
// user and then reloads; otherwise it asks the provider, whose SIGNED_OUT
// event updates the state. A failure leaves the state as it was.
func (m *AuthStateMachine) SignOut(ctx context.Context) error {
	if m.bypassActive(ctx) {
		if m.bypass != nil {
			if err := m.bypass.Disable(ctx); err != nil {
				m.logger.Error(ctx, "clear skip-auth flag failed", "err", err)
				return fmt.Errorf("clear skip-auth flag: %w", err)
			}
		}
		m.mu.Lock()
		m.override = false
		m.mu.Unlock()

		m.apply(models.AuthState{})
		m.reload(ctx)
		return nil
	}

	if m.provider == nil {
		return common.ErrNotConfigured
	}
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error(ctx, "sign out failed", "err", err)
		return err
	}
	return nil
}

// SkipAuthentication switches to the test identity at once. The flag is
// persisted for later runs; a persistence error is returned but the
// in-memory override still applies.
func (m *AuthStateMachine) SkipAuthentication(ctx context.Context) error {
	m.mu.Lock()
	m.override = true
	m.mu.Unlock()

	m.apply(models.AuthState{User: TestUser()})

	if m.bypass == nil {
		return nil
	}
	if err := m.bypass.Enable(ctx); err != nil {
		m.logger.Warn(ctx, "persist skip-auth flag failed", "err", err)
		return fmt.Errorf("persist skip-auth flag: %w", err)
	}
	return nil
}

// State returns the current snapshot.
func (m *AuthStateMachine) State() models.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the signed-in user, or nil.
func (m *AuthStateMachine) CurrentUser() *models.User {
	return m.State().User
}

// Ready is closed once the current bootstrap attempt has resolved.
func (m *AuthStateMachine) Ready() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Subscribe calls fn with every new snapshot until the returned cancel
// function is called. fn runs synchronously and must not call SignOut,
// SkipAuthentication or Restart.
func (m *AuthStateMachine) Subscribe(fn func(models.AuthState)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Close stops the machine and removes the provider listener. A pending
// session lookup sees a cancelled context; Close does not wait for it and
// its result is dropped. It is safe to call twice.
func (m *AuthStateMachine) Close() error {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return nil
	}
	m.alive = false
	unsub := m.unsubscribe
	m.unsubscribe = nil
	cancel := m.cancel
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	cancel()
	m.wg.Wait()
	return nil
}

// ErrAuthNotReady is returned by WaitReady when ctx ends first.
var ErrAuthNotReady = errors.New("auth state not resolved")

// WaitReady blocks until the current bootstrap attempt resolves.
func (m *AuthStateMachine) WaitReady(ctx context.Context) error {
	select {
	case <-m.Ready():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrAuthNotReady, ctx.Err())
	}
}
