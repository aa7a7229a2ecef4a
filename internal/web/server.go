// Package web serves the lookup, report and batch API over HTTP.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/logging"
	"github.com/cardinal-lookup/internal/store"
	"github.com/cardinal-lookup/internal/web/handlers"
	"github.com/cardinal-lookup/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	store      store.Store
	sessions   *handlers.Sessions
	log        logrus.FieldLogger
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
}

// Deps are the collaborators the server is built from.
type Deps struct {
	Runner    *engine.Runner
	Store     store.Store
	StoreName string
	Logger    logrus.FieldLogger
}

// NewServer creates a new web server instance
func NewServer(config *Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	server := &Server{
		config:   config,
		store:    deps.Store,
		sessions: handlers.NewSessions(deps.Runner, deps.Store, deps.Logger),
		log:      deps.Logger,
	}

	// Setup routes
	server.setupRoutes(deps.StoreName)

	// Lookup runs and SSE streams outlive a fixed write timeout
	server.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler:     server.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(storeName string) {
	s.router = mux.NewRouter()

	// Convert config for handlers (to avoid import cycle)
	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ExportEnabled = s.config.Features.ExportEnabled

	apiHandler := &handlers.APIHandler{Config: handlerConfig, Started: time.Now(), Store: storeName}
	lookupHandler := &handlers.LookupHandler{Sessions: s.sessions}
	reportHandler := &handlers.ReportHandler{Sessions: s.sessions, Config: handlerConfig}
	batchesHandler := &handlers.BatchesHandler{Sessions: s.sessions}
	realtimeHandler := &handlers.RealtimeHandler{Sessions: s.sessions}

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", apiHandler.Health).Methods("GET")

	// Lookup and report
	api.HandleFunc("/lookup", lookupHandler.Run).Methods("POST")
	api.HandleFunc("/report", reportHandler.Get).Methods("GET")
	api.HandleFunc("/report/groups/{index:[0-9]+}/strike", reportHandler.ToggleStrike).Methods("POST")
	api.HandleFunc("/report/save", reportHandler.Save).Methods("POST")
	if s.config.Features.ExportEnabled {
		api.HandleFunc("/report/export.csv", reportHandler.ExportCSV).Methods("GET")
	}

	// Saved batches
	api.HandleFunc("/batches", batchesHandler.List).Methods("GET")
	api.HandleFunc("/batches/stream", realtimeHandler.BatchesStream).Methods("GET")
	api.HandleFunc("/batches/{index:[0-9]+}/load", batchesHandler.Load).Methods("POST")
	api.HandleFunc("/batches/{id}", batchesHandler.Delete).Methods("DELETE")

	// Static file serving
	staticDir := "internal/web/static"
	if _, err := os.Stat(staticDir); err == nil {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir + "/")))
	}

	// Apply middleware
	s.router.Use(middleware.Authentication(s.config.Auth.Enabled))
	s.router.Use(middleware.RequestLogging(s.log))

	// CORS wraps the router so preflight requests reach it before route matching
	s.handler = middleware.CORS()(s.router)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	// Setup graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if s.config.Auth.Enabled {
		s.log.Warnf("identity is taken from the %s header; run behind an authenticating proxy", middleware.UserHeader)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Starting server on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	s.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Warn("server shutdown error")
	}
	s.Close()

	s.log.Info("Server stopped")
	return nil
}

// Close ends all sessions and closes the store.
func (s *Server) Close() {
	s.sessions.Close()
	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Warn("store close error")
	}
}
