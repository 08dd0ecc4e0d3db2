package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter wires the HTTP surface. Public routes carry locale detection and
// rate limiting; everything under the authed group requires a bearer token.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.I18N("en", lookup),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/stats/summary", app.StatsSummary)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))

		r.Route("/v1/appraisals", func(r chi.Router) {
			r.Post("/", app.AppraisalsCreate)
			r.Get("/status", app.AppraisalsStatus)
			r.Get("/{job_id}", app.AppraisalsGet)
		})
		r.Get("/v1/valuations/{record_id}", app.ValuationsGet)
		r.Get("/v1/me/streak", app.MeStreak)
	})

	return r
}
