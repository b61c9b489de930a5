package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phantomlabs/beastmode/graph"
	"github.com/phantomlabs/beastmode/server"
	"github.com/phantomlabs/beastmode/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rt.close()

		svc, err := buildService(rt)
		if err != nil {
			return err
		}
		svc.Runner().AddListener(graph.NewLoggingListener[state.AgentState](logger))

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           server.New(svc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening on %s", cfg.ListenAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}
