package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type globalChatRepository struct {
	db    *mongo.Database
	codec *crypto.Codec
}

func NewGlobalChatRepository(database *mongo.Database, codec *crypto.Codec) domain.GlobalChatRepository {
	return &globalChatRepository{db: database, codec: codec}
}

func (r *globalChatRepository) collection() *mongo.Collection {
	return r.db.Collection(db.GlobalChatCollection)
}

func (r *globalChatRepository) Create(ctx context.Context, message *domain.GlobalChatMessage) (err error) {
	ctx, span := startSpan(ctx, "global_chat.create")
	defer func() { endSpan(span, err) }()

	doc, err := newMessageDocument(r.codec, &message.ChatMessage)
	if err != nil {
		return err
	}
	doc.Station = message.Station
	doc.Position = message.Position

	if _, err := r.collection().InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert global message: %w", err)
	}
	return nil
}

// ListRecent skips soft-deleted messages and returns oldest first.
func (r *globalChatRepository) ListRecent(ctx context.Context, limit int) ([]*domain.GlobalChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection().Find(ctx, bson.M{"deleted_at": bson.M{"$exists": false}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list global messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode global messages: %w", err)
	}

	out := make([]*domain.GlobalChatMessage, 0, len(docs))
	for i := range docs {
		out = append(out, &domain.GlobalChatMessage{
			ChatMessage: docs[i].chatMessage(r.codec, ""),
			Station:     docs[i].Station,
			Position:    docs[i].Position,
		})
	}
	slices.Reverse(out)
	return out, nil
}

func (r *globalChatRepository) SoftDeleteOwned(ctx context.Context, messageID, userID string) error {
	if userID == "" {
		return domain.ErrNotMessageOwner
	}

	live := bson.M{"_id": messageID, "deleted_at": bson.M{"$exists": false}}
	owned := bson.M{"_id": messageID, "user_id": userID, "deleted_at": bson.M{"$exists": false}}

	result, err := r.collection().UpdateOne(ctx, owned, bson.M{
		"$set": bson.M{"deleted_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to delete global message: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	return existsOrNotOwner(ctx, r.collection(), live)
}

func (r *globalChatRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.collection().DeleteMany(ctx, bson.M{"sent_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge global messages: %w", err)
	}
	return result.DeletedCount, nil
}

// EnsureIndexes prepares the shared collections; session partitions get
// theirs when provisioned.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sent_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	_, err := database.Collection(db.GlobalChatCollection).Indexes().CreateMany(ctx, indexes)
	return err
}
