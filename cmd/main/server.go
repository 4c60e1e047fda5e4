package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CTAG07/namegen/pkg/store"
	"github.com/spf13/cobra"
)

type Server struct {
	logger    *slog.Logger
	modelsAPI *ModelsAPI
	statsAPI  *StatsAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

func NewServer(config *Config, logger *slog.Logger, s *store.Store, rng *rand.Rand) *Server {
	server := &Server{
		logger:    logger,
		modelsAPI: NewModelsAPI(s, config.Generation, rng, logger),
		statsAPI:  NewStatsAPI(s, logger),
		serverAPI: NewServerAPI(logger),
		apiMux:    http.NewServeMux(),
	}
	server.modelsAPI.RegisterRoutes(server.apiMux)
	server.statsAPI.RegisterRoutes(server.apiMux)
	server.serverAPI.RegisterRoutes(server.apiMux)
	return server
}

// ServeHTTP logs every request before handing it to the api mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.apiMux.ServeHTTP(w, r)
	s.logger.Debug("Request served",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.Duration("elapsed", time.Since(start)),
	)
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored models over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// serve hosts the API until ctx is cancelled, then shuts down gracefully.
func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("Starting server...")

	db, s, err := openStore(a.config.Server, logger)
	if err != nil {
		return err
	}

	server := NewServer(a.config, logger, s, a.newRand())
	httpServer := &http.Server{
		Addr:              a.config.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting api server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Signal received, stopping server...")
	case err = <-serveErr:
		if err != nil {
			logger.Error("Api server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Api server shutdown failed", "error", shutdownErr)
	}
	logger.Info("HTTP server stopped.")

	logger.Info("Closing database connection.")
	s.Close()
	if closeErr := db.Close(); closeErr != nil {
		logger.Error("Failed to close database", "error", closeErr)
	}
	logger.Info("namegen has shut down.")
	return err
}
