package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/staff-manager/internal/api/handlers"
	"github.com/hugh/staff-manager/internal/api/middleware"
	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/internal/departments"
	"github.com/hugh/staff-manager/internal/guard"
	"github.com/hugh/staff-manager/internal/users"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiters []*middleware.RateLimiter
	csrf     *middleware.CSRFStore
}

type RouterConfig struct {
	DB                *gorm.DB
	Redis             *redis.Client
	Broker            handlers.Broker
	Logger            *slog.Logger
	JWTService        *auth.JWTService
	AuthService       *auth.Service
	UserService       *users.Service
	DepartmentService *departments.Service
	AllowedOrigins    []string // CORS allowed origins
	RateLimitReqs     int      // Rate limit requests per window
	RateLimitSecs     int      // Rate limit window in seconds
	StaticDir         string   // built SPA; empty serves JSON placeholders
	SecureCookies     bool
	TrustProxy        bool // take the client address from forwarding headers
}

// Pages reachable by any signed-in user, and those reserved for admins.
var (
	memberPages = []string{"/home", "/users", "/user-list", "/view-user", "/update-user"}
	adminPages  = []string{"/admin", "/departments"}
)

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()
	router := &Router{Router: r}

	// Global middleware
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		router.limiters = append(router.limiters, limiter)
		r.Use(middleware.RateLimit(limiter, middleware.ByIP))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CSRFHeaderName, "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Authenticated API calls also get a per-user budget.
	var perUser []func(http.Handler) http.Handler
	if cfg.RateLimitReqs > 0 {
		userLimiter := middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
		router.limiters = append(router.limiters, userLimiter)
		perUser = append(perUser, middleware.RateLimit(userLimiter, middleware.ByUser))
	}

	router.csrf = middleware.NewCSRFStore(cfg.JWTService.RefreshTTL())

	// Sign-in gets its own tighter budget against password guessing.
	signInLimiter := middleware.NewRateLimiter(10, 60)
	router.limiters = append(router.limiters, signInLimiter)

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis, cfg.Broker)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, router.csrf, cfg.JWTService.AccessTTL(), cfg.SecureCookies)
	userHandler := handlers.NewUserHandler(cfg.UserService)
	departmentHandler := handlers.NewDepartmentHandler(cfg.DepartmentService)
	pageHandler := handlers.NewPageHandler(cfg.StaticDir)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(signInLimiter, middleware.ByIP)).Post("/sign-in", authHandler.SignIn)
			r.Post("/introspect", authHandler.Introspect)

			// Cookie-authenticated
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRF(router.csrf))
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/sign-out", authHandler.SignOut)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWTService))
				r.Use(perUser...)

				r.Put("/", userHandler.Update)
				r.Get("/user-department", userHandler.Colleagues)
				r.Get("/profile", userHandler.Profile)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin))
					r.Get("/", userHandler.List)
					r.Delete("/", userHandler.Delete)
				})
			})
		})

		r.Route("/departments", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			r.Use(perUser...)

			r.Get("/", departmentHandler.List)
			r.Get("/tree", departmentHandler.Tree)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Post("/", departmentHandler.Create)
				r.Put("/", departmentHandler.Update)
				r.Delete("/{id}", departmentHandler.Delete)
			})
		})
	})

	// Browser routes
	pageGuard := guard.New(cfg.JWTService)
	r.Group(func(r chi.Router) {
		r.Use(guard.LoadSession)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		})
		r.Get(guard.LoginPath, pageHandler.Login)

		for _, path := range memberPages {
			r.With(pageGuard.Protect("")).Get(path, pageHandler.Serve)
		}
		for _, path := range adminPages {
			r.With(pageGuard.Protect(models.RoleAdmin)).Get(path, pageHandler.Serve)
		}
	})

	if cfg.StaticDir != "" {
		r.Handle("/static/*", pageHandler.Assets())
	}

	return router
}

// Close stops the background goroutines owned by the router's middleware.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
	rt.csrf.Stop()
}
