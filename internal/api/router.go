package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/observability"
)

// RouterConfig carries the cross-cutting middleware settings.
type RouterConfig struct {
	// CORSOrigin is echoed in Access-Control-Allow-Origin; empty disables CORS headers.
	CORSOrigin string
	// CORSCredentials adds Access-Control-Allow-Credentials. It is ignored for the "*" origin.
	CORSCredentials bool
	RequestTimeout  time.Duration
	// Auth wraps every route; nil leaves requests unauthenticated, as in tests that inject claims.
	Auth func(http.Handler) http.Handler
	// RateLimiter runs after Auth so callers are keyed by subject; nil disables it.
	RateLimiter *RateLimiter
}

// NewRouter wires the handler's endpoints and middleware into a chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMetrics)
	if cfg.CORSOrigin != "" {
		r.Use(cors(cfg.CORSOrigin, cfg.CORSCredentials && cfg.CORSOrigin != "*"))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.Auth != nil {
		r.Use(cfg.Auth)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.recordTransaction)
			r.Get("/", h.listTransactions)
		})

		r.Route("/cuadres", func(r chi.Router) {
			r.Get("/", h.listCuadres)
			r.Get("/weekly", h.weeklySummary)
			r.Get("/{id}", h.getCuadre)
			r.Put("/{id}/closing", h.declareClosing)
			r.Post("/{id}/review", h.reviewCuadre)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.createUser)
			r.Get("/", h.listUsers)
			r.Patch("/{id}", h.updateUser)
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", h.listCommissionRates)
			r.Put("/{system}", h.setCommissionRate)
		})

		r.Post("/sync", h.requestSync)

		if h.drafts != nil {
			r.Route("/drafts/{context}/{date}", func(r chi.Router) {
				r.Get("/", h.loadDraft)
				r.Put("/", h.saveDraft)
				r.Delete("/", h.clearDraft)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
	return r
}

func cors(origin string, credentials bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
