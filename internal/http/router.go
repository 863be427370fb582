// Package httpapi assembles the voter-facing HTTP API. It owns middleware
// ordering and route mounting only; handlers live next to their module.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safeballot/internal/platform/metrics"
	"safeballot/internal/quickballot"
	"safeballot/pkg/platform/httputil"
	adminmw "safeballot/pkg/platform/middleware/admin"
	"safeballot/pkg/platform/middleware/auth"
	"safeballot/pkg/platform/middleware/device"
	"safeballot/pkg/platform/middleware/metadata"
	request "safeballot/pkg/platform/middleware/request"
	"safeballot/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the pieces the router mounts.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Voter routes, mounted under /v1 behind the device-profile middleware.
	Voter []Registrar
	// QuickRoutes mounts the voter routes again under /quick. Handlers pass
	// the routed path to the quick-ballot gate, which bypasses verification
	// there.
	QuickRoutes bool
	// Admin routes, mounted under /v1/admin behind the admin token.
	Admin      Registrar
	AdminToken string

	VoterTokens auth.VoterTokenValidator
	Device      device.Config

	Health map[string]HealthCheck
}

// NewRouter wires every public endpoint.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(observe(d.Metrics))

	r.Get("/healthz", health(d.Health, logger))
	r.Handle("/metrics", promhttp.Handler())

	voter := func(r chi.Router) {
		r.Use(device.Profile(d.Device, logger))
		r.Use(auth.Credentials(d.VoterTokens, logger))
		for _, reg := range d.Voter {
			reg.Register(r)
		}
	}
	if d.QuickRoutes {
		r.Route(strings.TrimSuffix(quickballot.RoutePrefix, "/"), voter)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Group(voter)
		if d.Admin != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(adminmw.RequireAdminToken(d.AdminToken, logger))
				d.Admin.Register(r)
			})
		}
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// observe records request latency by route pattern so IDs in paths do not
// explode label cardinality.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.ObserveRequest(route, strconv.Itoa(sw.status/100)+"xx", time.Since(start).Seconds())
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func health(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"check", name,
					"request_id", request.GetRequestID(ctx),
					"error", err,
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
