package main

import (
	"context"
	"errors"
	"expvar"
	"log"
	"runtime"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/audit"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/chat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/flight"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/globalchat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/overview"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/report"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/session"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/statistics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/automod"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/env"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/events"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/jobs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/messaging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ratelimiter"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/tracing"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/persistence/db"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/api"
	adminHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/admin"
	chatsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/chats"
	flightsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/flights"
	healthHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/health"
	realtimeHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/realtime"
	sessionsHandler "github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"
)

const (
	serviceName = "pfcontrol-api"
)

func main() {
	env.LoadDotEnv()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize the logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	sh, err := tracing.InitTracer(tracing.NewConfig(serviceName, cfg.Tracing))
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(context.Background())

	m := metrics.New()

	codec, err := crypto.NewCodec(cfg.Encryption.Key, logger)
	if err != nil {
		logger.Fatal("Failed to initialize encryption", zap.Error(err))
	}
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.CookieName)
	if err != nil {
		logger.Fatal("Failed to initialize the token verifier", zap.Error(err))
	}

	st, err := openStores(ctx, cfg, codec, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer st.close(context.Background())

	redisClient, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		st.checks = append(st.checks, healthHandler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	limiters, closeLimiters := newLimiters(cfg.RateLimit, redisClient)
	defer closeLimiters()

	// Use cases
	reportUseCase := report.NewReportUseCase(st.reports, logger)
	statisticsUseCase := statistics.NewStatisticsUseCase(
		st.statistics, st.sessions, st.flights, st.partitions,
		cfg.Retention.Statistics, cfg.Retention.MinGap, logger,
	)
	auditUseCase := audit.NewAuditUseCase(st.audit, cfg.Retention.AuditLogs, cfg.Retention.MinGap, m, logger)

	var publisher domain.EventPublisher = events.NewDirectPublisher(reportUseCase, logger)
	var rabbitmq *messaging.RabbitMQ
	if cfg.RabbitMQ.URI != "" {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		defer rabbitmq.Close()
		publisher = events.NewEventPublisher(rabbitmq, logger)
	}

	moderator := automod.Default()
	sessionUseCase := session.NewSessionUseCase(st.sessions, st.partitions, statisticsUseCase, publisher, session.Quota{
		MaxPerUser:         cfg.Sessions.MaxPerUser,
		MaxPerElevatedUser: cfg.Sessions.MaxPerElevatedUser,
	}, logger)
	flightUseCase := flight.NewFlightUseCase(st.sessions, st.flights, st.partitions, statisticsUseCase, logger)
	chatUseCase := chat.NewChatUseCase(st.sessions, st.chat, st.partitions, moderator, publisher, m, logger)
	globalChatUseCase := globalchat.NewGlobalChatUseCase(
		st.globalChat, moderator, publisher, m,
		cfg.GlobalChat.MessageTTL, cfg.GlobalChat.HistoryLimit, logger,
	)

	tracker := presence.NewTracker(presence.Options{
		InactivityTimeout: cfg.Presence.InactivityTimeout,
		SweepInterval:     cfg.Presence.SweepInterval,
	}, logger)
	overviewUseCase := overview.NewOverviewUseCase(st.sessions, st.flights, tracker, logger)

	// Realtime
	wsCore := ws.NewCore(logger, m)
	broadcaster := realtimeHandler.NewOverviewBroadcaster(wsCore, overviewUseCase, cfg.Overview.Interval, logger)
	realtime := realtimeHandler.NewHandler(
		wsCore, ws.NewUpgrader(cfg.HTTP.AllowedOrigins), verifier,
		sessionUseCase, flightUseCase, chatUseCase, globalChatUseCase,
		tracker, broadcaster,
		ws.ClientOptions{
			EventsPerSecond: cfg.WebSocket.EventsPerSecond,
			Burst:           cfg.WebSocket.Burst,
			MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
			PongWait:        cfg.WebSocket.PongWait,
		},
		logger,
	)

	retention := jobs.NewRetentionJob(logger, cfg.Retention.Interval,
		jobs.Task{Name: "audit_logs", Run: func(ctx context.Context, now time.Time) error {
			_, _, err := auditUseCase.Cleanup(ctx, now)
			return err
		}},
		jobs.Task{Name: "statistics", Run: func(ctx context.Context, now time.Time) error {
			_, _, err := statisticsUseCase.Cleanup(ctx, now)
			return err
		}},
		jobs.Task{Name: "global_chat", Run: func(ctx context.Context, now time.Time) error {
			_, err := globalChatUseCase.Purge(ctx, now)
			return err
		}},
	)

	supervisor := suture.New("pfcontrol", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn("Supervisor event",
				append(logging.Fields(logging.Internal, logging.Background, nil),
					zap.String("event", e.String()))...)
		},
	})
	supervisor.Add(wsCore)
	supervisor.Add(tracker)
	supervisor.Add(broadcaster)
	supervisor.Add(retention)
	if rabbitmq != nil {
		supervisor.Add(events.NewReportConsumer(rabbitmq, reportUseCase, logger))
	}
	supervisorDone := supervisor.ServeBackground(ctx)

	go func() {
		if err := statisticsUseCase.Backfill(ctx, statistics.DefaultDays); err != nil {
			logger.Warn("Statistics backfill failed", zap.Error(err))
		}
	}()

	handlers := api.Handlers{
		Sessions: sessionsHandler.NewHandler(sessionUseCase, wsCore, broadcaster, logger),
		Flights:  flightsHandler.NewHandler(flightUseCase, wsCore, broadcaster, logger),
		Chats:    chatsHandler.NewHandler(sessionUseCase, chatUseCase, wsCore, logger),
		Admin:    adminHandler.NewHandler(auditUseCase, statisticsUseCase, reportUseCase, logger),
		Health:   healthHandler.NewHandler(st.checks...),
		Realtime: realtime,
	}
	app := api.NewApplication(*cfg, handlers, verifier, limiters, auditUseCase, m, logger)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	cancel()
	if err := <-supervisorDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Supervisor stopped with error", zap.Error(err))
	}
}

// newLimiters prefers Redis so limits hold across replicas.
func newLimiters(cfg configs.RateLimitConfig, client *redis.Client) (api.Limiters, func()) {
	authOpts := ratelimiter.Options{
		Name:          "auth",
		Limit:         cfg.Auth.Requests,
		Window:        cfg.Auth.Window,
		BlockDuration: cfg.Auth.BlockDuration,
	}
	chatOpts := ratelimiter.Options{
		Name:          "chat",
		Limit:         cfg.Chat.Requests,
		Window:        cfg.Chat.Window,
		BlockDuration: cfg.Chat.BlockDuration,
	}

	if client != nil {
		return api.Limiters{
			Auth: ratelimiter.NewRedis(client, authOpts),
			Chat: ratelimiter.NewRedis(client, chatOpts),
		}, func() {}
	}

	authLimiter := ratelimiter.NewInMemory(authOpts)
	chatLimiter := ratelimiter.NewInMemory(chatOpts)
	return api.Limiters{Auth: authLimiter, Chat: chatLimiter}, func() {
		authLimiter.Close()
		chatLimiter.Close()
	}
}
