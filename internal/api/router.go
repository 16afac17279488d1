package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/daap14/stencil/internal/api/handler"
	"github.com/daap14/stencil/internal/api/middleware"
	"github.com/daap14/stencil/internal/auth"
	"github.com/daap14/stencil/internal/blueprint"
	"github.com/daap14/stencil/internal/ingest"
	"github.com/daap14/stencil/internal/store"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Repo        blueprint.Repository
	Ingestor    *ingest.Ingestor
	Layout      *store.Layout
	DBPinger    handler.DBPinger
	AuthService *auth.Service
	UserRepo    auth.UserRepository
	Version     string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Layout, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	bpHandler := handler.NewBlueprintHandler(deps.Repo, deps.Ingestor, deps.Layout)

	r.Group(func(r chi.Router) {
		if deps.AuthService != nil {
			r.Use(middleware.Auth(deps.AuthService))
		}

		r.Route("/blueprints", func(r chi.Router) {
			r.Get("/", bpHandler.List)
			r.Put("/{id}", bpHandler.Upload)
			r.Get("/{id}", bpHandler.GetByID)
			r.Get("/{id}/archive", bpHandler.DownloadArchive)
			r.Delete("/{id}", bpHandler.Delete)
		})

		if deps.AuthService != nil && deps.UserRepo != nil {
			userHandler := handler.NewUserHandler(deps.AuthService, deps.UserRepo)
			r.Route("/users", func(r chi.Router) {
				r.Post("/", userHandler.Create)
				r.Get("/", userHandler.List)
				r.Delete("/{id}", userHandler.Delete)
			})
		}
	})

	return r
}
