package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/gophchat/internal/client/attachments"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/client/supabase"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/filex"
	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// localDBName is the SQLite file kept in the data directory.
const localDBName = "gophchat.db"

// Setup builds an App from cfg: the local database, the auth provider (when
// configured), the selected session store, the optional image archive and
// the chat backend client. The returned cleanup closes the databases.
func Setup(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger logging.Logger) (*App, func(), error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return fail(err)
	}
	local, err := client.InitDatabase(ctx, filepath.Join(dir, localDBName))
	if err != nil {
		return fail(fmt.Errorf("init local database: %w", err))
	}
	closers = append(closers, local.Close)
	repos := client.NewRepositories(local)

	hc := &http.Client{Timeout: cfg.RequestTimeout}

	var authClient *supabase.AuthClient
	if cfg.AuthConfigured() {
		authClient = supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, repos.Metadata,
			supabase.WithHTTPClient(hc),
			supabase.WithLogger(logger),
		)
	} else {
		logger.Warn(ctx, "supabase credentials missing; sign-in disabled")
	}

	store, err := openStore(ctx, cfg, repos, authClient, hc, &closers)
	if err != nil {
		return fail(err)
	}

	deps := Deps{API: client.NewHTTPClient(cfg.ChatAPIBaseURL, hc, logger)}

	var archive services.ImageArchive
	if cfg.ArchiveEnabled() {
		a, err := attachments.NewArchive(ctx, attachments.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}, hc, logger)
		if err != nil {
			return fail(fmt.Errorf("init image archive: %w", err))
		}
		archive, deps.Images = a, a
	}

	// a nil *AuthClient must stay a nil interface
	var provider services.AuthProvider
	if authClient != nil {
		provider, deps.Accounts = authClient, authClient
	}
	deps.Auth = services.NewAuthStateMachine(provider, metadata.NewSkipAuthFlag(repos.Metadata),
		services.AuthOptions{Timeout: cfg.AuthTimeout}, logger)

	deps.Chat, err = services.NewChatController(deps.API, store, deps.Auth,
		services.ChatOptions{AutosaveDelay: cfg.AutosaveDelay, Archive: archive}, logger)
	if err != nil {
		return fail(err)
	}

	return NewApp(cfg, deps, in, out, logger), cleanup, nil
}

// openStore returns the session repository selected by cfg.Store.
func openStore(ctx context.Context, cfg *config.Config, repos *client.Repositories, authClient *supabase.AuthClient, hc *http.Client, closers *[]func() error) (sessions.Repository, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := sessions.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, db.Close)
		return sessions.NewPostgresRepository(db), nil
	case config.StoreSupabase:
		if authClient == nil {
			return nil, fmt.Errorf("supabase store: %w", common.ErrNotConfigured)
		}
		return supabase.NewSessionStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, authClient, hc), nil
	default:
		return repos.Sessions, nil
	}
}
