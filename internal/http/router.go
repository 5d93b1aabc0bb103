package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	matchhandler "lifeline/internal/match/handler"
	offerhandler "lifeline/internal/offer/handler"
	"lifeline/internal/platform/middleware"
	"lifeline/pkg/httputil"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps collects everything the router mounts.
type Deps struct {
	Matches *matchhandler.Handler
	Offers  *offerhandler.Handler
	Logger  *slog.Logger

	// Checks maps a dependency name to its health probe. Nil probes are
	// skipped so memory-backed deployments stay healthy.
	Checks map[string]HealthChecker
}

// NewRouter assembles the middleware chain and mounts all route groups.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	d.Matches.Register(r)
	d.Offers.Register(r)

	r.Get("/health", handleHealth(d.Checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		deps := map[string]string{}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = "degraded"
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, map[string]any{
			"status":       status,
			"dependencies": deps,
		})
	}
}
