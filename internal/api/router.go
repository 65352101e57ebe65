package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/lena/certscope/internal/api/handlers"
	"github.com/lena/certscope/internal/api/middleware"
	"github.com/lena/certscope/internal/discovery"
	"github.com/lena/certscope/internal/scanner"
	"github.com/lena/certscope/internal/scheduler"
	"github.com/lena/certscope/internal/store"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Logger         *slog.Logger
	Store          store.Store
	Scanner        scanner.CertScannerInterface
	Scheduler      *scheduler.Scheduler // nil when the scheduler is disabled
	Discovery      *discovery.Service
	APIKey         string   // empty disables auth
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // rate limit requests per window
	RateLimitSecs  int      // rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	certificateHandler := handlers.NewCertificateHandler(cfg.Store)
	scanHandler := handlers.NewScanHandler(cfg.Store, cfg.Scheduler, cfg.Scanner, cfg.Logger)
	credentialHandler := handlers.NewCredentialHandler(cfg.Discovery)
	discoveryHandler := handlers.NewDiscoveryHandler(cfg.Discovery, cfg.Logger)
	endpointHandler := handlers.NewEndpointHandler(cfg.DB)

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Health)
	r.Get("/readyz", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.APIKey))

		// Ad-hoc batch scan
		r.Post("/scan", scanHandler.ScanNow)

		// Scan definitions
		r.Route("/scans", func(r chi.Router) {
			r.Get("/", scanHandler.List)
			r.Post("/", scanHandler.Create)
			r.Get("/{id}", scanHandler.Get)
			r.Put("/{id}", scanHandler.Update)
			r.Delete("/{id}", scanHandler.Delete)
			r.Post("/{id}/run", scanHandler.Run)
		})

		// Scanned certificates
		r.Get("/certificates", certificateHandler.List)

		// Provider credentials
		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", credentialHandler.List)
			r.Post("/", credentialHandler.Create)
			r.Delete("/{id}", credentialHandler.Delete)
			r.Post("/{id}/validate", credentialHandler.Validate)
		})

		// Endpoint discovery
		r.Post("/discovery/run", discoveryHandler.Run)
		r.Get("/endpoints", endpointHandler.List)
	})

	return &Router{r}
}
