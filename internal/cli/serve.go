package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotagate/quotagate/internal/config"
	"github.com/quotagate/quotagate/internal/identity"
	"github.com/quotagate/quotagate/internal/limits"
	"github.com/quotagate/quotagate/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr       string
		configPath string
	)
	opts := defaultStorageOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quota middleware server",
		Long: `Starts an HTTP server that resolves callers to rate classes and serves
their quota status.

Endpoints:
  GET /limits   Quota-status report for the authenticated caller
  GET /health   Health check
  GET /metrics  Prometheus metrics`,
		Example: `  quotagate serve --config quotagate.json
  quotagate serve --addr :9090 --storage redis --redis-host redis.internal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.LoadFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts.applyConfigIfUnset(cmd, &cfg.Storage)
			st, closeStore, err := opts.open()
			if err != nil {
				return err
			}
			defer closeStore()

			rules, err := cfg.BuildRules()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			dir := buildDirectory(cfg.Identity)

			svc := limits.NewService(limits.Config{
				Store:        st,
				Directory:    dir,
				Rules:        rules,
				DefaultClass: cfg.DefaultClass,
				Policy:       limits.MatchPolicy(cfg.MatchPolicy),
				Logger:       logger,
			})
			srv := server.New(cfg.Server.Addr, svc, logger)

			logger.Info("starting quotagate",
				"addr", cfg.Server.Addr,
				"storage", opts.backend,
				"rules", len(rules),
				"default_class", cfg.DefaultClass)

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "server listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "path to JSON config file")
	opts.addFlags(cmd)

	return cmd
}

func buildDirectory(cfg config.IdentityConfig) identity.Directory {
	users := make([]identity.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, identity.User{ID: u.ID, Name: u.Name})
	}
	tokens := make([]identity.Token, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, identity.Token{ID: t.ID, UserID: t.UserID})
	}
	return identity.NewStaticDirectory(users, tokens)
}

func newExampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config <path>",
		Short: "Write an example configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteExample(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote example config to %s\n", args[0])
			return nil
		},
	}
}
