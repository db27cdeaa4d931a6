package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/aokaito/annotune-sub000/interfaces/http/rest/handlers"
	"github.com/aokaito/annotune-sub000/interfaces/http/rest/middleware"
	"github.com/aokaito/annotune-sub000/pkg/common"
	"github.com/aokaito/annotune-sub000/pkg/errors"
	"github.com/aokaito/annotune-sub000/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether downstream dependencies are reachable.
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the transport-level options
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	Readiness      ReadinessCheck
}

// Router creates and configures the HTTP router
type Router struct {
	service       handlers.LyricAPI
	authenticator *middleware.Authenticator
	errors        *errors.ErrorHandler
	collector     *observability.Collector
	config        RouterConfig
	logger        *zap.Logger
}

// NewRouter creates a new router instance. collector may be nil.
func NewRouter(
	service handlers.LyricAPI,
	authenticator *middleware.Authenticator,
	errorHandler *errors.ErrorHandler,
	collector *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		service:       service,
		authenticator: authenticator,
		errors:        errorHandler,
		collector:     collector,
		config:        config,
		logger:        logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.collector != nil {
		router.Use(rt.collector.Middleware)
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Location"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	lyrics := handlers.NewLyricHandler(rt.service, rt.errors, rt.logger)
	annotations := handlers.NewAnnotationHandler(rt.service, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/public/lyrics", func(r chi.Router) {
			r.Get("/", lyrics.ListPublicLyrics)
			r.Get("/{docId}", lyrics.GetPublicLyric)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator.Require)

			r.Route("/lyrics", func(r chi.Router) {
				r.Post("/", lyrics.CreateLyric)
				r.Get("/", lyrics.ListLyrics)

				r.Route("/{docId}", func(r chi.Router) {
					r.Get("/", lyrics.GetLyric)
					r.Put("/", lyrics.UpdateLyric)
					r.Delete("/", lyrics.DeleteLyric)
					r.Post("/share", lyrics.ShareLyric)
					r.Post("/repair", lyrics.RepairSnapshot)

					r.Get("/annotations", annotations.ListAnnotations)
					r.Post("/annotations", annotations.CreateAnnotation)
					r.Put("/annotations/{annotationId}", annotations.UpdateAnnotation)
					r.Delete("/annotations/{annotationId}", annotations.DeleteAnnotation)

					r.Get("/versions", annotations.ListVersions)
					r.Get("/versions/{version}", annotations.GetVersion)
				})
			})
		})
	})

	return router
}

// healthCheck handles liveness requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck runs the configured dependency probe with a short deadline
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.config.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.config.Readiness(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
