package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/lifesciencesignals/radar/internal/api/handlers"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// CronSecretHeader authenticates trigger endpoints
const CronSecretHeader = "x-cron-secret"

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Radar   *handlers.RadarHandler
	Filters *handlers.FilterHandler
	Orgs    *handlers.OrgHandler
	Jobs    *handlers.JobsHandler
}

// RouterOptions carries the cross-cutting dependencies of the router
type RouterOptions struct {
	CronSecret  string
	RateLimiter *redis.RateLimiter // nil disables trigger throttling
	Metrics     *metrics.Registry  // nil hides /metrics
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router
func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/ws/jobs", h.Jobs.Stream).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/taxonomy", handlers.GetTaxonomy).Methods("GET")
	api.HandleFunc("/ingest/jobs", h.Jobs.JobsStatus).Methods("GET")

	// Cron triggers
	triggers := api.NewRoute().Subrouter()
	triggers.Use(cronSecretMiddleware(opts.CronSecret))
	triggers.Use(rateLimitMiddleware(opts.RateLimiter, redis.CronTriggerRateLimit, log))
	triggers.HandleFunc("/digest", h.Jobs.TriggerDigest).Methods("GET")
	triggers.HandleFunc("/ingest/rss", h.Jobs.TriggerIngest).Methods("GET")

	// Organizations
	api.HandleFunc("/orgs/bootstrap", h.Orgs.Bootstrap).Methods("POST")

	org := api.PathPrefix("/orgs/{orgID}").Subrouter()
	org.HandleFunc("/radar", h.Radar.GetRadar).Methods("GET")
	org.HandleFunc("/accounts/{accountID}/signals", h.Radar.GetSignals).Methods("GET")
	org.HandleFunc("/accounts/{accountID}/breakdown", h.Radar.GetBreakdown).Methods("GET")
	org.HandleFunc("/filters", h.Filters.List).Methods("GET")
	org.HandleFunc("/filters", h.Filters.Create).Methods("POST")
	org.HandleFunc("/filters/active", h.Filters.GetActive).Methods("GET")
	org.HandleFunc("/filters/{filterID}", h.Filters.Delete).Methods("DELETE")
	org.HandleFunc("/filters/{filterID}/activate", h.Filters.Activate).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
		"status":  "ok",
		"service": "radar-api",
	})
}

// cronSecretMiddleware rejects requests without the shared secret.
// An empty secret disables the check.
func cronSecretMiddleware(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(CronSecretHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware throttles trigger endpoints across processes.
// Limiter failures let the request through.
func rateLimitMiddleware(limiter *redis.RateLimiter, cfg redis.RateLimitConfig, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				allowed, remaining, err := limiter.Allow(r.Context(), cfg)
				if err != nil {
					log.WithError(err).Warn("Rate limiter unavailable")
				} else {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
					if !allowed {
						w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
						writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Websocket upgrades need the raw writer
			if r.URL.Path == "/ws/jobs" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
		"error": message,
	})
}
