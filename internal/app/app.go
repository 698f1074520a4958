package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"charchat/internal/retention"
	"charchat/pkg/completion"
	"charchat/pkg/config"
	"charchat/pkg/relay"
	"charchat/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	relay *relay.Relay

	srv           *http.Server
	stopRetention context.CancelFunc
}

// New initializes resources that do not require a running context (DB,
// completion client, relay). It does not start the HTTP server or the
// retention scheduler; call Run to start those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// open store
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}
	if n := eff.Config.Subscribe.Capacity; n > 0 {
		store.SetSubscribeCapacity(n)
	}

	// completion client and retrying relay
	client := completion.NewClient(eff.Config.Completion)
	rl := relay.New(client, eff.Config.Completion.Retry)

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, relay: rl}
	return a, nil
}

// Run starts the retention scheduler (if enabled) and the HTTP server, and
// blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	if a.eff.Config.Retention.Enabled {
		stop, err := retention.Start(ctx, a.eff.Config.Retention)
		if err != nil {
			return fmt.Errorf("retention scheduler: %w", err)
		}
		a.stopRetention = stop
		defer a.stopRetention()
	}

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopRetention != nil {
		a.stopRetention()
	}
	var err error
	if a.srv != nil {
		err = a.srv.Shutdown(ctx)
	}
	if cerr := store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
