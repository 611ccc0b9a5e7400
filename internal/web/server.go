package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"clinicbook/internal/config"
	"clinicbook/internal/domain"
	"clinicbook/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server is the public booking site plus the staff admin pages.
type Server struct {
	cfg      *config.Config
	bookings *service.BookingService
	limiter  domain.RateLimitStore
	sessions *SessionManager
	tmpl     *template.Template
	logger   *zerolog.Logger
	server   *http.Server
}

func NewServer(
	cfg *config.Config,
	bookings *service.BookingService,
	limiter domain.RateLimitStore,
	logger *zerolog.Logger,
) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		bookings: bookings,
		limiter:  limiter,
		sessions: NewSessionManager([]byte(cfg.Session.HashKey), []byte(cfg.Session.BlockKey)),
		tmpl:     tmpl,
		logger:   logger,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	readLimiter := newIPLimiter(s.cfg.RateLimit)

	r.Group(func(r chi.Router) {
		r.Use(readLimiter.Middleware)
		r.Get("/", s.handleIndex)
		r.Get("/available_slots", s.handleAvailableSlots)
		r.Get("/confirmation", s.handleConfirmation)
		r.Get("/login", s.handleLoginForm)
	})

	r.Post("/submit", s.handleSubmit)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/bookings", s.handleBookings)
		r.Get("/bookings/export", s.handleBookingsExport)
	})

	r.Get("/healthz", s.handleHealthz)
	if s.cfg.Monitoring.PrometheusEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler; used in tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}
