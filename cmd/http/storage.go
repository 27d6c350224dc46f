package main

import (
	"context"
	"fmt"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/persistence/db"
	persistence "github.com/cephie-studios/pfcontrol-2-sub004/internal/persistence/repository"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/handler/health"
	"go.uber.org/zap"
)

const globalChatCapacity = 1000

type stores struct {
	sessions   domain.SessionRepository
	partitions domain.PartitionProvisioner
	flights    domain.FlightRepository
	chat       domain.ChatRepository
	globalChat domain.GlobalChatRepository
	audit      domain.AuditRepository
	statistics domain.StatisticsRepository
	reports    domain.ReportRepository

	checks []health.Check
	close  func(ctx context.Context)
}

func openStores(ctx context.Context, cfg *configs.Config, codec *crypto.Codec, logger *zap.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case configs.StorageMemory:
		return memoryStores(codec, logger), nil
	case configs.StorageDatabase, "":
		return databaseStores(ctx, cfg, codec, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func memoryStores(codec *crypto.Codec, logger *zap.Logger) *stores {
	logger.Warn("Using in-memory storage, nothing survives a restart",
		logging.Fields(logging.General, logging.Startup, nil)...)

	partitions := repository.NewPartitionStore()
	return &stores{
		sessions:   repository.NewSessionRepository(codec),
		partitions: partitions,
		flights:    repository.NewFlightRepository(partitions, codec),
		chat:       repository.NewChatRepository(partitions, codec),
		globalChat: repository.NewGlobalChatRepository(codec, globalChatCapacity),
		audit:      repository.NewAuditRepository(codec),
		statistics: repository.NewStatisticsRepository(),
		reports:    repository.NewReportRepository(codec),
		close:      func(context.Context) {},
	}
}

func databaseStores(ctx context.Context, cfg *configs.Config, codec *crypto.Codec, logger *zap.Logger) (*stores, error) {
	gormDB, err := db.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if err := persistence.Migrate(gormDB); err != nil {
		_ = db.ClosePostgres(gormDB)
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	mongoClient, err := db.NewMongoClient(ctx, cfg.Mongo, logger)
	if err != nil {
		_ = db.ClosePostgres(gormDB)
		return nil, err
	}
	database := mongoClient.Database(db.DatabaseName(cfg.Mongo))
	if err := persistence.EnsureIndexes(ctx, database); err != nil {
		logger.Warn("Failed to ensure mongodb indexes",
			append(logging.Fields(logging.MongoDB, logging.Startup, nil), zap.Error(err))...)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		_ = db.ClosePostgres(gormDB)
		_ = db.DisconnectMongo(ctx, mongoClient)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	logger.Info("Connected to storage",
		logging.Fields(logging.General, logging.Startup, map[logging.ExtraKey]any{
			"mongoDatabase": db.DatabaseName(cfg.Mongo),
		})...)

	return &stores{
		sessions:   persistence.NewSessionRepository(gormDB, codec, logger),
		partitions: persistence.NewPartitionProvisioner(database, logger),
		flights:    persistence.NewFlightRepository(database, codec),
		chat:       persistence.NewChatRepository(database, codec),
		globalChat: persistence.NewGlobalChatRepository(database, codec),
		audit:      persistence.NewAuditRepository(gormDB, codec, logger),
		statistics: persistence.NewStatisticsRepository(gormDB, logger),
		reports:    persistence.NewReportRepository(gormDB, codec),
		checks: []health.Check{
			{Name: "postgres", Ping: sqlDB.PingContext},
			{Name: "mongodb", Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }},
		},
		close: func(ctx context.Context) {
			if err := db.ClosePostgres(gormDB); err != nil {
				logger.Error("Failed to close postgres", zap.Error(err))
			}
			if err := db.DisconnectMongo(ctx, mongoClient); err != nil {
				logger.Error("Failed to disconnect mongodb", zap.Error(err))
			}
		},
	}, nil
}
