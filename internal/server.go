// Package internal wires the HTTP surface: routing, middleware, and the
// handlers that translate requests into repository calls.
package internal

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"asset-inventory-api/internal/audit"
	"asset-inventory-api/internal/auth"
	"asset-inventory-api/internal/config"
	"asset-inventory-api/internal/handlers"
	"asset-inventory-api/internal/inventory"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	DB         *sql.DB
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Log        *zap.SugaredLogger
	Cfg        *config.Config

	Items     *inventory.Repository
	Locations *inventory.LocationStore
	Audit     *audit.Recorder

	limiters []*ipLimiter
}

func NewServer(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) (*Server, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, err
	}

	recorder := audit.NewRecorder(log)

	s := &Server{
		DB:         db,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Log:        log,
		Cfg:        cfg,
		Items:      inventory.NewRepository(db, recorder, cfg.PerPageMax),
		Locations:  inventory.NewLocationStore(db, recorder),
		Audit:      recorder,
	}

	// Middleware must be attached before any route is registered.
	s.Router.Use(withRequestID)
	if cfg.EnableMetrics {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Mount public routes FIRST (no auth middleware)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: unreachable", http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Login is throttled per client IP to slow credential stuffing.
	loginLimiter := s.newLimiter(rate.Every(time.Second), 5)
	s.Router.With(loginLimiter.Middleware).Post("/auth/login", s.loginUser)

	// Mount metrics if enabled
	if cfg.EnableMetrics {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})

	return s, nil
}

// newLimiter builds a rate limiter whose eviction goroutine is stopped
// when the server closes.
func (s *Server) newLimiter(r rate.Limit, burst int) *ipLimiter {
	l := newIPLimiter(r, burst)
	s.limiters = append(s.limiters, l)
	return l
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	for _, l := range s.limiters {
		l.Stop()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Inventory items - staff/admin for writes, admin for deletes
	r.Get("/items", s.listItems)
	r.Get("/items/{id}", s.getItem)
	r.Post("/items", auth.MustRole("staff", "admin")(http.HandlerFunc(s.createItem)).(http.HandlerFunc))
	r.Put("/items/{id}", auth.MustRole("staff", "admin")(http.HandlerFunc(s.updateItem)).(http.HandlerFunc))
	r.Delete("/items/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteItem)).(http.HandlerFunc))

	// Locations - admin only for writes
	r.Get("/locations", s.listLocations)
	r.Get("/locations/{id}", s.getLocation)
	r.Post("/locations", auth.MustRole("admin")(http.HandlerFunc(s.createLocation)).(http.HandlerFunc))
	r.Put("/locations/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateLocation)).(http.HandlerFunc))

	// Bulk transfers - staff/admin. Imports are throttled per client IP
	// since each upload can cost up to CSV_MAX_ROWS of writes.
	transfers := handlers.NewTransfersHandler(s.Items, s.Locations, s.Audit, s.DB, s.Cfg, s.Log)
	importLimiter := s.newLimiter(rate.Every(time.Second), 5)
	r.With(importLimiter.Middleware).
		Post("/imports/inventory", auth.MustRole("staff", "admin")(http.HandlerFunc(transfers.Upload)).(http.HandlerFunc))
	r.Get("/exports/inventory.csv", transfers.Download)

	// Audit trail - admin only
	r.Get("/audit", auth.MustRole("admin")(http.HandlerFunc(s.listAuditEntries)).(http.HandlerFunc))

	// User management - admin only
	r.Post("/users", auth.MustRole("admin")(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/users", auth.MustRole("admin")(http.HandlerFunc(s.listUsers)).(http.HandlerFunc))
	r.Get("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.getUser)).(http.HandlerFunc))
	r.Put("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateUser)).(http.HandlerFunc))
	r.Delete("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteUser)).(http.HandlerFunc))

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
	r.Post("/auth/logout", s.logoutUser)
}
