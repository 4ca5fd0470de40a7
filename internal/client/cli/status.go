package cli

import (
	"context"
	"fmt"
	"time"
)

// Backend is the last known state of the chat backend.
type Backend string

const (
	BackendUnknown  Backend = "connecting"
	BackendOnline   Backend = "online"
	BackendNoGemini Backend = "online, AI not configured"
	BackendOffline  Backend = "offline"
)

// healthTimeout bounds a single health probe.
const healthTimeout = 3 * time.Second

// Backend returns the state recorded by the last health probe.
func (a *App) Backend() Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.backend
}

func (a *App) setBackend(b Backend) {
	a.mu.Lock()
	prev := a.backend
	a.backend = b
	a.mu.Unlock()

	if prev != b {
		a.logger.Info(context.Background(), "backend status changed", "from", prev, "to", b)
	}
}

// probe runs one health check and records the outcome.
func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	h, err := a.api.HealthCheck(ctx)
	switch {
	case err != nil:
		a.logger.Debug(ctx, "health check failed", "err", err)
		a.setBackend(BackendOffline)
	case !h.GeminiConfigured:
		a.setBackend(BackendNoGemini)
	default:
		a.setBackend(BackendOnline)
	}
}

// StartHealthWatcher probes the backend right away and then every interval
// until ctx is done. A non-positive interval probes once.
func (a *App) StartHealthWatcher(ctx context.Context, interval time.Duration) {
	a.probe(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Status probes the backend now and prints the result.
func (a *App) Status(ctx context.Context) error {
	a.probe(ctx)
	fmt.Fprintf(a.out, "Backend: %s\n", a.Backend())
	if u := a.auth.CurrentUser(); u != nil {
		fmt.Fprintf(a.out, "Signed in as %s <%s>\n", displayName(u), u.Email)
	}
	return nil
}
