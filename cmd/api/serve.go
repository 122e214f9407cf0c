package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"voice-relay-go/internal/server"
)

const shutdownGrace = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			log := newLogger(cfg)
			log.WithField("service", "voice-relay-go").Info("starting service")

			listen := strings.TrimSpace(addr)
			if listen == "" {
				listen = net.JoinHostPort("0.0.0.0", cfg.Server.Port)
			}

			srv := &http.Server{
				Addr:              listen,
				Handler:           server.New(buildProcessor(cfg, log), log).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				// Summarization alone may take three attempts plus backoff.
				WriteTimeout: 150 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", listen).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("server terminated")
					return err
				}
				return nil
			case <-runCtx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("graceful shutdown failed")
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to 0.0.0.0:$PORT)")
	return cmd
}
