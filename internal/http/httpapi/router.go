package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"contentstudio/internal/http/handlers"
	"contentstudio/internal/middleware"
)

type Options struct {
	Logger             zerolog.Logger
	AllowedOrigins     []string
	DefaultLocale      string
	CountryLookup      middleware.CountryLookup
	RateLimitPerMinute int
	// Registry backs /metrics and the HTTP collectors; nil disables both.
	Registry *prometheus.Registry
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
	)
	if opts.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(opts.Registry).Handler)
	}
	r.Use(
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/healthz", app.Health)
	if opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", handlers.MetricsHandler(opts.Registry))
	}
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute)).
			Post("/create-content", app.CreateContent)
		r.Get("/get-content", app.GetContent)
		r.Get("/contents", app.ListContents)
		r.Get("/content-progress/{id}", app.ContentProgress)
		r.Get("/content-progress/{id}/ws", app.ProgressWS)
		r.Get("/content/{id}/bundle", app.ContentBundle)
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	return r
}
