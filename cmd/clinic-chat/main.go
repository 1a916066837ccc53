// clinic-chat is a headless client for the clinic messaging API: it
// keeps a local view of a conversation in sync by polling, sends text
// messages, and moves attachments in both directions.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/clinic-chat/internal/api"
	"github.com/ewhitmore/clinic-chat/internal/config"
	"github.com/ewhitmore/clinic-chat/internal/logging"
	"github.com/ewhitmore/clinic-chat/internal/state"
	"github.com/ewhitmore/clinic-chat/internal/transfer"
)

var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "clinic-chat",
		Short:         "Sync and exchange messages with your clinic",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd(), sendCmd(), uploadCmd(), openCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wiring every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *state.Store
	client *api.Client
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// loadApp loads config and opens the state store and API client. The
// session token comes from the environment when set (and is cached),
// otherwise from the store.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	store, err := state.Load()
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	token := cfg.Token
	if token == "" {
		token = store.Token()
	} else if err := store.SetToken(token); err != nil {
		logger.Warn("caching session token", slog.Any("error", err))
	}

	if token == "" {
		store.Close()
		return nil, fmt.Errorf("no session token: set CLINIC_TOKEN or sign in from the app first")
	}

	ctrl := transfer.NewController(http.DefaultClient, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		client: api.NewClient(cfg.BaseURL, token, ctrl, logger),
	}, nil
}
