package api

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/audit"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ratelimiter"
	adminHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/admin"
	chatsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/chats"
	flightsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/flights"
	healthHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/health"
	realtimeHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/realtime"
	sessionsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

type Handlers struct {
	Sessions *sessionsHandler.Handler
	Flights  *flightsHandler.Handler
	Chats    *chatsHandler.Handler
	Admin    *adminHandler.Handler
	Health   *healthHandler.Handler
	Realtime *realtimeHandler.Handler
}

// Limiters are the sliding-window limiters for the sensitive route groups.
type Limiters struct {
	Auth ratelimiter.Limiter
	Chat ratelimiter.Limiter
}

type Application struct {
	config   configs.Config
	handlers Handlers
	verifier *auth.Verifier
	limiters Limiters
	audit    audit.AuditUseCase
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewApplication(
	config configs.Config,
	handlers Handlers,
	verifier *auth.Verifier,
	limiters Limiters,
	auditUseCase audit.AuditUseCase,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Application {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		config:   config,
		handlers: handlers,
		verifier: verifier,
		limiters: limiters,
		audit:    auditUseCase,
		metrics:  m,
		logger:   logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.cors())

	r.Get("/health", app.handlers.Health.GetHealth)
	r.Get("/healthz", app.handlers.Health.GetHealth)
	r.Get("/live", app.handlers.Health.GetLive)
	r.Handle("/metrics", app.metrics.Handler())
	r.Handle("/debug/vars", expvar.Handler())

	// websocket routes must not sit behind the request timeout
	r.Route("/ws", func(r chi.Router) {
		r.Get("/flights", app.handlers.Realtime.FlightsHandler)
		r.Get("/chat", app.handlers.Realtime.ChatHandler)
		r.Get("/global-chat", app.handlers.Realtime.GlobalChatHandler)
		r.Get("/overview", app.handlers.Realtime.OverviewHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(httprate.LimitByRealIP(app.config.RateLimit.API.Requests, app.config.RateLimit.API.Window))
		r.Use(app.verifier.Optional)

		r.Route("/auth", func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware("auth", app.limiters.Auth))
			r.With(app.verifier.Required).Get("/me", app.meHandler)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(app.verifier.Required).Post("/create", app.handlers.Sessions.CreateSessionHandler)
			r.With(app.verifier.Required).Get("/mine", app.handlers.Sessions.GetMySessionsHandler)
			r.With(app.verifier.Required, auth.RequireAdmin, app.AuditMiddleware(domain.AuditSessionsListed)).
				Get("/", app.handlers.Sessions.ListSessionsHandler)
			r.With(app.verifier.Required).Post("/update-name", app.handlers.Sessions.UpdateNameHandler)
			r.With(app.verifier.Required, app.AuditMiddleware(domain.AuditSessionDeleted)).
				Post("/delete", app.handlers.Sessions.DeleteSessionHandler)
			r.Get("/{sessionId}", app.handlers.Sessions.GetSessionHandler)
			r.Put("/{sessionId}", app.handlers.Sessions.UpdateSessionHandler)
		})

		r.Route("/flights/{sessionId}", func(r chi.Router) {
			r.Get("/", app.handlers.Flights.ListFlightsHandler)
			r.Post("/", app.handlers.Flights.CreateFlightHandler)
			r.Put("/{flightId}", app.handlers.Flights.UpdateFlightHandler)
			r.Delete("/{flightId}", app.handlers.Flights.DeleteFlightHandler)
		})

		r.Route("/chats/{sessionId}", func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware("chat", app.limiters.Chat))
			r.Get("/", app.handlers.Chats.GetMessagesHandler)
			r.With(app.verifier.Required).Post("/", app.handlers.Chats.CreateMessageHandler)
			r.With(app.verifier.Required).Delete("/{messageId}", app.handlers.Chats.DeleteMessageHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.verifier.Required)
			r.Use(auth.RequireAdmin)

			r.With(app.AuditMiddleware(domain.AuditAuditLogsViewed)).Get("/audit-logs", app.handlers.Admin.ListAuditLogsHandler)
			r.Get("/audit-logs/{id}", app.handlers.Admin.GetAuditLogHandler)
			r.With(app.AuditMiddleware(domain.AuditStatisticsViewed)).Get("/statistics", app.handlers.Admin.GetStatisticsHandler)
			r.Get("/chat-reports", app.handlers.Admin.ListChatReportsHandler)
			r.With(app.AuditMiddleware(domain.AuditChatReportResolved)).
				Post("/chat-reports/{id}/resolve", app.handlers.Admin.ResolveChatReportHandler)
		})
	})

	return otelhttp.NewHandler(r, "pfcontrol-api")
}

func (app *Application) meHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	json.WriteJSON(w, http.StatusOK, user)
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.logger.Info("signal caught",
			logging.Fields(logging.General, logging.Shutdown, map[logging.ExtraKey]any{"Signal": s.String()})...)

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info("server has started",
		logging.Fields(logging.General, logging.Startup, map[logging.ExtraKey]any{"Addr": srv.Addr})...)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	// audit writes still in flight belong to requests that already completed
	app.audit.Wait()
	app.logger.Info("server has stopped",
		logging.Fields(logging.General, logging.Shutdown, map[logging.ExtraKey]any{"Addr": srv.Addr})...)

	return nil
}
