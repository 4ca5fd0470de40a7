package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with the -c and -e lookups.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-k", "-b", "-d", "-D", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ChatAPIBaseURL, "a", cfg.ChatAPIBaseURL, "base URL of the chat backend")
	fs.StringVar(&cfg.SupabaseURL, "s", cfg.SupabaseURL, "Supabase project URL")
	fs.StringVar(&cfg.SupabaseAnonKey, "k", cfg.SupabaseAnonKey, "Supabase anon key")
	fs.StringVar(&cfg.Store, "b", cfg.Store, "session store: sqlite, postgres or supabase")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres DSN")
	fs.StringVar(&cfg.DataDir, "D", cfg.DataDir, "local data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	authTimeout := fs.Int("t", int(cfg.AuthTimeout.Seconds()), "auth bootstrap timeout (in seconds)")
	healthInterval := fs.Int("i", int(cfg.HealthCheckInterval.Seconds()), "health check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AuthTimeout = time.Duration(*authTimeout) * time.Second
	cfg.HealthCheckInterval = time.Duration(*healthInterval) * time.Second
}
