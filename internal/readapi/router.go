package readapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/pkg/logger"
)

// NewRouter builds the read API's HTTP router: request logging,
// panic recovery, and global rate limiting ahead of the config and
// stream endpoints.
func NewRouter(svc *Service, cfg config.ServerConfig, log *slog.Logger) *mux.Router {
	h := &handlers{svc: svc, log: log, streamHeartbeat: cfg.StreamHeartbeat}

	router := mux.NewRouter()
	router.Use(logger.HTTPMiddleware(log))
	router.Use(recoveryMiddleware(log))
	router.Use(rateLimitMiddleware(cfg.RateLimitPerSecond, cfg.RateLimitBurst))

	projects := router.PathPrefix("/projects/{projectId}").Subrouter()
	projects.HandleFunc("/configs", h.GetProjectConfigs).Methods(http.MethodGet)
	projects.HandleFunc("/configs/{name}", h.GetConfig).Methods(http.MethodGet)
	projects.HandleFunc("/configs/{name}/value", h.GetConfigValue).Methods(http.MethodGet)
	projects.HandleFunc("/events", h.Events).Methods(http.MethodGet)

	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	return router
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// recoveryMiddleware turns a panic in a handler into a 500 instead of
// killing the server, mirroring the teacher's middleware stack shape.
func recoveryMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered serving request", "path", r.URL.Path, "panic", rec)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware applies one process-wide token bucket across
// the read API; there is no per-caller identity to key on since reads
// are unauthenticated.
func rateLimitMiddleware(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
