package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/flowiq/scheduling-platform/internal/http/middleware"
	"github.com/flowiq/scheduling-platform/internal/realtime"
	"github.com/flowiq/scheduling-platform/internal/scheduling"
	"github.com/flowiq/scheduling-platform/internal/tenancy"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Registry           *tenancy.Registry
	Scheduling         *scheduling.Handler
	Feed               *realtime.Hub
	MetricsHandler     http.Handler
	HealthHandler      http.HandlerFunc
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// BookingRate caps booking attempts per IP; zero disables the limiter.
	BookingRate  float64
	BookingBurst int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped booking API. The tenant is resolved from the request
	// host; unknown hosts fall back to the default clinic.
	r.Group(func(tenant chi.Router) {
		tenant.Use(tenancy.ResolveTenant(cfg.Registry, cfg.Logger))

		tenant.Route("/calendar", func(cal chi.Router) {
			cal.Get("/slots", cfg.Scheduling.ListSlots)
			cal.Get("/slots/{slotID}", cfg.Scheduling.GetSlot)

			mutate := cal
			if cfg.BookingRate > 0 {
				mutate = cal.With(httpmiddleware.RateLimit(cfg.BookingRate, cfg.BookingBurst))
			}
			mutate.Post("/slots/{slotID}/book", cfg.Scheduling.BookSlot)
			mutate.Post("/slots/{slotID}/release", cfg.Scheduling.ReleaseSlot)

			if cfg.Feed != nil {
				cal.Get("/feed", cfg.Feed.ServeFeed)
			}
		})
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(tenancy.ResolveTenant(cfg.Registry, cfg.Logger))
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

			admin.Route("/providers/{providerID}", func(provider chi.Router) {
				provider.Get("/templates", cfg.Scheduling.ListTemplates)
				provider.Post("/templates", cfg.Scheduling.CreateTemplate)
				provider.Put("/templates/{templateID}", cfg.Scheduling.UpdateTemplate)
				provider.Post("/slots/generate", cfg.Scheduling.GenerateSlots)
			})
		})
	}

	return r
}
