package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"brickvault-api/internal/gate"
	"brickvault-api/internal/handler"
	"brickvault-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	ViewHandler      *handler.ViewHandler
	InventoryHandler *handler.InventoryHandler
	ProfileHandler   *handler.ProfileHandler
	AuthHandler      *handler.AuthHandler
	AdminHandler     *handler.AdminHandler

	Gate              *gate.Gate
	SessionMiddleware func(http.Handler) http.Handler
	AdminMiddleware   func(http.Handler) http.Handler

	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC probes
	if cfg.Handler != nil {
		r.Get("/api/health", cfg.Handler.Health)
		r.Get("/api/ready", cfg.Handler.Ready)
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Operator endpoints
	if cfg.AdminHandler != nil && cfg.AdminMiddleware != nil {
		r.With(cfg.AdminMiddleware).Get("/api/admin/stats", cfg.AdminHandler.GetStats)
	}

	// SESSION routes: everything that reads or writes the credential store
	r.Group(func(r chi.Router) {
		if cfg.SessionMiddleware != nil {
			r.Use(cfg.SessionMiddleware)
		}

		if cfg.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Get("/config", cfg.AuthHandler.Config)
				r.Post("/session", cfg.AuthHandler.SignIn)
				r.Get("/session", cfg.AuthHandler.GetSession)
				r.Delete("/session", cfg.AuthHandler.SignOut)
			})
		}

		if cfg.ViewHandler != nil && cfg.Gate != nil {
			r.With(middleware.ViewGate(cfg.Gate, gate.RouteHome)).Get("/", cfg.ViewHandler.Home)
			r.With(middleware.ViewGate(cfg.Gate, gate.RouteSets)).Get("/sets", cfg.ViewHandler.Sets)
			r.With(middleware.ViewGate(cfg.Gate, gate.RouteProfile)).Get("/profile", cfg.ViewHandler.Profile)
		}

		if cfg.ProfileHandler != nil {
			r.Route("/api/users", func(r chi.Router) {
				// listing every profile is an operator action
				if cfg.AdminMiddleware != nil {
					r.With(cfg.AdminMiddleware).Get("/", cfg.ProfileHandler.List)
				}
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSession)
					r.Post("/", cfg.ProfileHandler.Upsert)
					r.Get("/{id}", cfg.ProfileHandler.Get)
					r.Patch("/{id}", cfg.ProfileHandler.UpdateSettings)
				})
			})
		}

		if cfg.InventoryHandler != nil && cfg.Gate != nil {
			r.Route("/api/inventory", func(r chi.Router) {
				r.Use(middleware.APIGate(cfg.Gate, gate.RouteSets))
				r.Get("/sets", cfg.InventoryHandler.ListSets)
				r.Get("/partlists", cfg.InventoryHandler.ListPartLists)
				r.Get("/search", cfg.InventoryHandler.Search)
				r.Post("/moves", cfg.InventoryHandler.MoveItem)
				r.Route("/{kind}/{containerID}/parts", func(r chi.Router) {
					r.Get("/", cfg.InventoryHandler.ListItems)
					r.Post("/", cfg.InventoryHandler.AddItem)
					r.Delete("/{partID}", cfg.InventoryHandler.RemoveItem)
				})
			})
		}
	})

	return r
}
