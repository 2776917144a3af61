package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"adherence-tracker/internal/auth"
	"adherence-tracker/internal/middleware"
	"adherence-tracker/internal/observability/metrics"
	"adherence-tracker/internal/services"
)

// RouterConfig carries everything the HTTP layer depends on
type RouterConfig struct {
	Service     *services.AdherenceService
	JWT         *auth.JWTManager
	CSRF        *middleware.CSRFProtection
	RateLimiter *middleware.RateLimiter
	// Metrics may be nil, which disables /metrics and request metrics
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Ready   Pinger

	CORSOrigins    []string
	CSPEnabled     bool
	HSTSEnabled    bool
	RequestTimeout time.Duration
	ServiceName    string
}

// NewRouter builds the HTTP handler for the API
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	svc := cfg.Service
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT)

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(middleware.SecurityHeaders(cfg.CSPEnabled, cfg.HSTSEnabled))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		r.Get("/health", HandleHealth())
		r.Get("/ready", HandleReady(cfg.Ready, logger))
		if cfg.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
		}

		// Expired tokens are accepted here, so this sits outside RequireAuth
		r.Post("/api/auth/refresh", HandleRefreshToken(cfg.JWT, logger))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.CSRF != nil {
			r.Use(cfg.CSRF.Middleware)
		}

		r.Route("/api", func(r chi.Router) {
			if cfg.CSRF != nil {
				r.Get("/csrf-token", HandleGetCSRFToken(cfg.CSRF))
			}

			r.Get("/auth/me", HandleGetCurrentUser())
			r.Post("/auth/logout", HandleLogout())

			r.Route("/patients/{patientID}", func(r chi.Router) {
				r.Get("/medications", HandleListMedications(svc, logger))
				r.Post("/medications", HandleCreateMedication(svc, logger))
				r.Get("/doses", HandleDailyDoses(svc, logger))
				r.Get("/compliance", HandlePatientCompliance(svc, logger))
			})

			r.Route("/medications/{id}", func(r chi.Router) {
				r.Get("/", HandleGetMedication(svc, logger))
				r.Put("/", HandleUpdateMedication(svc, logger))
				r.Delete("/", HandleDeleteMedication(svc, logger))
				r.Get("/doses", HandleRangeDoses(svc, logger))
				r.Post("/doses/generate", HandleGenerateDoses(svc, logger))
				r.Put("/doses/{doseID}", HandleSetDoseStatus(svc, logger))
				r.Get("/compliance", HandleMedicationCompliance(svc, logger))
				r.Get("/audit", HandleMedicationAudit(svc, logger))
			})
		})
	})

	return r
}
