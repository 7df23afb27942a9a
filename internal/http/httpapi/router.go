package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"thumbgen/internal/http/handlers"
	"thumbgen/internal/middleware"
)

// Options tunes the router beyond what App carries.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	// StaticDir, when set, is served under /static.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
			r.Post("/register", app.Register)
			r.Post("/login", app.Login)
		})

		r.Group(func(r chi.Router) {
			issuer := ""
			if app.Config != nil {
				issuer = app.Config.JWTIssuer
			}
			r.Use(middleware.AuthJWT(app.JWTSecret, issuer))

			r.Get("/me", app.Me)
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).
				Post("/thumbnails/generate", app.GenerateThumbnails)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", app.ListHistory)
				r.Delete("/", app.ClearHistory)
				r.Delete("/{id}", app.DeleteHistory)
			})
		})
	})

	return r
}
