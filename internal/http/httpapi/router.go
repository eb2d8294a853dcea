package httpapi

import (
	"net/http"
	"time"

	"server/internal/http/handlers"
	"server/internal/infra"
	mw "server/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options carries router construction inputs beyond the handler container.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	StaticDir       string
	StaticPrefix    string
}

// NewRouter wires the middleware chain and the API surface.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		mw.Logger(opts.Logger),
		mw.CORS(opts.AllowedOrigins),
	)

	r.Get("/api/health", app.Health)

	r.Route("/api/generate", func(r chi.Router) {
		limit := opts.RateLimitPerMin
		if limit <= 0 {
			limit = 30
		}
		r.With(mw.RateLimit(limit, time.Minute)).Post("/", app.Generate)
		r.Get("/progress/{requestId}", app.Progress)
	})

	r.Post("/api/analyze-body", app.AnalyzeBody)

	if opts.StaticDir != "" {
		prefix := opts.StaticPrefix
		if prefix == "" {
			prefix = "/static"
		}
		fileServer := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get(prefix+"/*", fileServer.ServeHTTP)
	}

	return r
}
