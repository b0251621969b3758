package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/walicode/internal/mockserver"
)

func mockCmd() *cobra.Command {
	var (
		port        int
		idleTimeout time.Duration
		marker      string
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Start a local mock backend",
		Long: `Start a local stand-in for the WaliCode API on /api, with /health,
/metrics and API docs on /api/docs. Seeded accounts: pub and ada, both with
the password "walicode"; ada is a member. Verification codes are logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			srv, err := mockserver.New(
				mockserver.WithLogger(logger),
				mockserver.WithIdleTimeout(idleTimeout),
				mockserver.WithSessionExpiredMarker(marker),
			)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           middleware.Logger(srv.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			// Graceful shutdown on SIGINT/SIGTERM.
			done := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("server failed: %w", err)
					return
				}
				done <- nil
			}()

			out := cmd.OutOrStdout()
			printBanner(out)
			fmt.Fprintf(out, "Serving the mock API on http://localhost:%d/api (docs: /api/docs)...\n", port)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case sig := <-quit:
				fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-done:
				return err
			}
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 24*time.Hour, "Idle time after which a session expires (0 disables)")
	cmd.Flags().StringVar(&marker, "marker", mockserver.DefaultSessionExpiredMarker, "errorMsg sent for expired sessions")
	return cmd
}
