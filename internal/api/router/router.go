package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/nagrik-sahayak/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/nagrik-sahayak/internal/http/middleware"
	"github.com/wolfman30/nagrik-sahayak/internal/http/respond"
	"github.com/wolfman30/nagrik-sahayak/internal/users"
	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	UsersHandler      *users.Handler
	IntakeHandler     *handlers.IntakeHandler
	ComplaintsHandler *handlers.ComplaintsHandler
	MetricsHandler    http.Handler
	OpsToken          string

	// Citizen tokens; an empty secret leaves citizen routes open (local development).
	AuthSecret string
	// Staff tokens for /admin. The admin routes are only mounted when set.
	AdminAuthSecret string

	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter

	// ReadyCheck reports dependency health for /ready. Nil means always ready.
	ReadyCheck func(r *http.Request) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(httpmiddleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", ready(cfg.ReadyCheck))
		if cfg.MetricsHandler != nil {
			public.With(requireOpsToken(cfg.OpsToken)).Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.UsersHandler != nil {
			public.Route("/auth", func(r chi.Router) {
				if cfg.RateLimiter != nil {
					r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
				}
				r.Post("/register", cfg.UsersHandler.Register)
				r.Post("/login", cfg.UsersHandler.Login)
			})
		}
	})

	// Citizen routes
	r.Group(func(citizen chi.Router) {
		citizen.Use(httpmiddleware.CitizenJWT(cfg.AuthSecret))
		if cfg.RateLimiter != nil {
			citizen.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if cfg.UsersHandler != nil {
			citizen.Route("/users/{userID}", func(r chi.Router) {
				r.Use(httpmiddleware.RequireSelf("userID"))
				r.Get("/", cfg.UsersHandler.GetProfile)
				r.Put("/profile", cfg.UsersHandler.UpdateProfile)
				r.Put("/preferences", cfg.UsersHandler.UpdatePreferences)
			})
		}

		citizen.Route("/complaint", func(r chi.Router) {
			if h := cfg.IntakeHandler; h != nil {
				r.Post("/sessions", h.CreateSession)
				r.Route("/sessions/{sessionID}", func(s chi.Router) {
					s.Get("/", h.GetSession)
					s.Post("/voice", h.CaptureVoice)
					s.Post("/image", h.AttachImage)
					s.Post("/finalize", h.Finalize)
				})
			}
			if h := cfg.ComplaintsHandler; h != nil {
				r.Post("/submit-email", h.SubmitEmail)
				r.Post("/download-pdf", h.DownloadPDF)
				r.With(httpmiddleware.RequireSelf("userID")).Get("/history/{userID}", h.History)
			}
		})

		if h := cfg.ComplaintsHandler; h != nil {
			citizen.With(httpmiddleware.RequireSelf("userID")).Get("/dashboard/{userID}", h.Dashboard)
		}
	})

	// Municipal staff routes
	if cfg.AdminAuthSecret != "" && cfg.ComplaintsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Put("/complaints/{complaintID}/status", cfg.ComplaintsHandler.SetStatus)
		})
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
