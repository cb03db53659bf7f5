package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/handlers"
	"github.com/ekaya-inc/ekaya-eda/pkg/mcp"
	"github.com/ekaya-inc/ekaya-eda/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-eda/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpServer := mcp.NewServer("ekaya-eda", a.cfg.Version, a.logger)
	mcpServer.RegisterResolverTools(a.store, &tools.ResolveToolDeps{
		Resolver: a.resolver,
		Config:   a.cfg.ResolverConfig(),
		Logger:   a.logger.Named("mcp-tools"),
	}, a.cfg.Version)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.store, a.provider.Breaker(), a.cfg.Version, a.logger).RegisterRoutes(mux)
	handlers.NewMetricsHandler(a.registry).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, a.logger.Named("mcp-http")).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           middleware.RequestLogger(a.logger.Named("http"))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting ekaya-eda",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", a.cfg.Server.TLSEnabled()),
			zap.String("version", a.cfg.Version))
		if a.cfg.Server.TLSEnabled() {
			errCh <- srv.ListenAndServeTLS(a.cfg.Server.TLSCertPath, a.cfg.Server.TLSKeyPath)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
