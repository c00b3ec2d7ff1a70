// Command intake serves the veterinary patient intake wizard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vetcare/intake/internal/config"
	"github.com/vetcare/intake/internal/server"
	"github.com/vetcare/intake/pkg/logging"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		logging.DefaultLogger.Error("command failed", logging.Err(err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "intake",
		Short:         "Veterinary patient intake server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr       string
		backendURL string
		logLevel   string
		jsonLogs   bool
		insecure   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("backend") {
				cfg.BackendURL = backendURL
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("json") && jsonLogs {
				cfg.LogFormat = "json"
			}
			if flags.Changed("insecure-dev") {
				cfg.InsecureDev = insecure
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address (INTAKE_ADDR)")
	cmd.Flags().StringVar(&backendURL, "backend", "http://localhost:5000", "Case backend base URL (INTAKE_BACKEND_URL)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error (LOG_LEVEL)")
	cmd.Flags().BoolVar(&jsonLogs, "json", false, "Write JSON logs (LOG_FORMAT=json)")
	cmd.Flags().BoolVar(&insecure, "insecure-dev", false, "Accept live connections from any origin")
	return cmd
}

func newLogger(cfg *config.Config) logging.Logger {
	opts := []logging.LoggerOption{logging.WithLevel(logging.ParseLevel(cfg.LogLevel))}
	if cfg.LogFormat == "json" {
		opts = append(opts, logging.WithJSON())
	}
	return logging.NewSlogLogger(opts...)
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	logging.SetDefault(logger)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.New(server.Options{
			Config:  cfg,
			Logger:  logger,
			Version: version,
		}),
		// live sessions derive from ctx and end when it is cancelled
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			logging.String("addr", cfg.Addr),
			logging.String("backend", cfg.BackendURL),
			logging.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
