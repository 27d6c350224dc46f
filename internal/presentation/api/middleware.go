package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ratelimiter"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// rateLimiterMiddleware fails open: a limiter backend error lets the
// request through.
func (app *Application) rateLimiterMiddleware(name string, limiter ratelimiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), name+":"+utils.ClientIP(r))
			if err != nil {
				app.logger.Warn("rate limiter unavailable",
					logging.Fields(logging.General, logging.RateLimiting, map[logging.ExtraKey]any{
						logging.Path:         r.URL.Path,
						logging.ErrorMessage: err.Error(),
					})...)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				app.metrics.Limited(name)
				json.WriteRateLimitError(w, int(math.Ceil(decision.RetryAfter.Seconds())))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *Application) cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   app.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", utils.HeaderAccessID},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		app.logger.Debug("request",
			logging.Fields(logging.RequestResponse, "", map[logging.ExtraKey]any{
				logging.Method:     r.Method,
				logging.Path:       r.URL.Path,
				logging.StatusCode: ww.Status(),
				logging.ClientIp:   utils.ClientIP(r),
				logging.Latency:    time.Since(start).String(),
			})...)
	})
}

// AuditMiddleware records privileged actions taken by admins. Only
// successful responses are recorded and the write never delays the
// response.
func (app *Application) AuditMiddleware(action domain.AuditAction) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 400 {
				return
			}
			user, ok := auth.UserFromContext(r.Context())
			if !ok || !user.IsAdmin || app.audit == nil {
				return
			}

			details := map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": status,
			}
			if q := r.URL.RawQuery; q != "" {
				details["query"] = q
			}

			app.audit.RecordAsync(&domain.AuditLogEntry{
				AdminID:       user.ID,
				AdminUsername: user.Username,
				ActionType:    action,
				Details:       details,
				IPAddress:     utils.ClientIP(r),
				UserAgent:     r.UserAgent(),
			})
		})
	}
}
