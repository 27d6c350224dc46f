package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// namespaceExists is the server code for creating a collection that is
// already there.
const namespaceExists = 48

// partitionProvisioner maps each session onto its own flights_<id> and
// chat_<id> collections.
type partitionProvisioner struct {
	db     *mongo.Database
	ready  sync.Map // sessionID -> struct{}
	group  singleflight.Group
	logger *zap.Logger
}

func NewPartitionProvisioner(db *mongo.Database, logger *zap.Logger) domain.PartitionProvisioner {
	return &partitionProvisioner{db: db, logger: logger}
}

func (p *partitionProvisioner) EnsurePartition(ctx context.Context, sessionID string) error {
	flights, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return err
	}
	chat, err := domain.ChatPartition(sessionID)
	if err != nil {
		return err
	}
	if _, ok := p.ready.Load(sessionID); ok {
		return nil
	}

	_, err, _ = p.group.Do(sessionID, func() (any, error) {
		if err := p.createCollection(ctx, flights, flightIndexes()); err != nil {
			return nil, err
		}
		if err := p.createCollection(ctx, chat, chatIndexes()); err != nil {
			return nil, err
		}
		p.ready.Store(sessionID, struct{}{})
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to provision partition %s: %w", sessionID, err)
	}
	return nil
}

func (p *partitionProvisioner) createCollection(ctx context.Context, name string, indexes []mongo.IndexModel) error {
	if err := p.db.CreateCollection(ctx, name); err != nil {
		var cmdErr mongo.CommandError
		if !errors.As(err, &cmdErr) || cmdErr.Code != namespaceExists {
			return err
		}
	}
	if _, err := p.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
		return err
	}
	return nil
}

func (p *partitionProvisioner) DropPartition(ctx context.Context, sessionID string) error {
	flights, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return err
	}
	chat, err := domain.ChatPartition(sessionID)
	if err != nil {
		return err
	}

	p.ready.Delete(sessionID)

	if err := p.db.Collection(flights).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s: %w", flights, err)
	}
	if err := p.db.Collection(chat).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s: %w", chat, err)
	}
	return nil
}

func (p *partitionProvisioner) ListPartitions(ctx context.Context) ([]string, error) {
	names, err := p.db.ListCollectionNames(ctx, bson.M{"name": bson.M{"$regex": "^flights_"}})
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := domain.SessionFromFlightsPartition(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func flightIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
}

func chatIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "sent_at", Value: -1}}},
	}
}
