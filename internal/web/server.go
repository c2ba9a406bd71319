// Package web provides the HTTP API and HTML pages for customer file uploads.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/custload/internal/config"
	"github.com/JonMunkholm/custload/internal/core"
	webmw "github.com/JonMunkholm/custload/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the part of *core.Service the handlers use.
type Service interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (core.UploadResult, error)
	ListCustomers(ctx context.Context) ([]core.Customer, error)
	GetCustomer(ctx context.Context, id int64) (core.Customer, error)
	ListAddresses(ctx context.Context) ([]core.Address, error)
	ListUploads(ctx context.Context, limit int) ([]core.UploadRecord, error)
	Stats(ctx context.Context) (core.Stats, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	UploadLimiterStatus() core.UploadLimiterStatus
}

// Server is the HTTP server for the upload API.
type Server struct {
	service Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/customers", s.handleCustomersPage)
	s.router.Get("/customers/{id}", s.handleCustomerPage)
	s.router.Group(func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(s.cfg.Security))
		r.Post("/upload", s.handleUploadForm)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/uploads", s.handleListUploads)
		r.Get("/customers", s.handleListCustomers)
		r.Get("/customers/{id}", s.handleGetCustomer)
		r.Get("/addresses", s.handleListAddresses)
		r.Get("/stats", s.handleStats)

		// Writes
		r.Group(func(r chi.Router) {
			r.Use(webmw.APIKeyAuth(s.cfg.Security))
			r.Post("/upload", s.handleUpload)
			r.Post("/reset", s.handleReset)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
