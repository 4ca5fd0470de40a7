package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// Authenticator is the account surface of the auth provider used by the
// login screen. supabase.AuthClient implements it.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.User, error)
	SignUp(ctx context.Context, email, password, fullName string) (user *models.User, signedIn bool, err error)
	RequestPasswordReset(ctx context.Context, email string) error
	SignInWithOAuth(ctx context.Context, provider string) (string, error)
	ExchangeCode(ctx context.Context, input string) (*models.User, error)
	AutoRefresh(ctx context.Context) error
}

// ImageLinker turns an archived image key into a viewable URL.
// attachments.Archive implements it.
type ImageLinker interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// Deps are the collaborators of an App. Accounts and Images may be nil:
// without Accounts only skip-auth mode is available, without Images
// archived attachments are listed without links.
type Deps struct {
	Auth     *services.AuthStateMachine
	Chat     *services.ChatController
	API      client.Client
	Accounts Authenticator
	Images   ImageLinker
}

type App struct {
	config   *config.Config
	auth     *services.AuthStateMachine
	chat     *services.ChatController
	api      client.Client
	accounts Authenticator
	images   ImageLinker
	reader   *bufio.Reader
	out      io.Writer
	logger   logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	backend Backend
	// listing is the last history view; /open, /rename and /delete number
	// into it.
	listing []models.Session
}

func NewApp(c *config.Config, deps Deps, in io.Reader, out io.Writer, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	return &App{
		config:   c,
		auth:     deps.Auth,
		chat:     deps.Chat,
		api:      deps.API,
		accounts: deps.Accounts,
		images:   deps.Images,
		reader:   bufio.NewReader(in),
		out:      out,
		logger:   logger.With("component", "cli"),
		now:      time.Now,
		backend:  BackendUnknown,
	}
}

// Run starts the auth bootstrap and the background workers, shows
// "Loading..." until the auth state resolves and then runs the REPL until
// the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := a.auth.Subscribe(a.chat.HandleAuthState)
	defer unsubscribe()
	a.auth.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if a.accounts != nil {
		g.Go(func() error { return a.accounts.AutoRefresh(gctx) })
	}
	g.Go(func() error {
		a.StartHealthWatcher(gctx, a.config.HealthCheckInterval)
		return nil
	})

	fmt.Fprintln(a.out, "Loading...")
	if err := a.auth.WaitReady(ctx); err == nil {
		a.greet()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.status, a.reader)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	cancel()

	err := g.Wait()
	_ = a.chat.Close()
	_ = a.auth.Close()
	return err
}

func (a *App) isLoggedIn() bool {
	return a.auth.CurrentUser() != nil
}

// greet prints the screen matching the resolved auth state.
func (a *App) greet() {
	st := a.auth.State()
	switch {
	case st.User != nil:
		fmt.Fprintf(a.out, "Signed in as %s. Type a message, or /help.\n", displayName(st.User))
	case st.Error == services.NotConfiguredMessage:
		fmt.Fprintln(a.out, notConfiguredHint)
	case st.Error != "":
		fmt.Fprintf(a.out, "Could not restore your session: %s\n", st.Error)
		fmt.Fprintln(a.out, "Type 'login' to sign in, or 'help'.")
	default:
		fmt.Fprintln(a.out, "Welcome! Type 'login' to sign in, 'signup' to create an account, or 'help'.")
	}
}

// status is the prompt label: who is signed in and how the backend is doing.
func (a *App) status() string {
	who := "signed out"
	if u := a.auth.CurrentUser(); u != nil {
		who = displayName(u)
	}
	return fmt.Sprintf("%s | %s", who, a.Backend())
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
