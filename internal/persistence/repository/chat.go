package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageDocument struct {
	ID              string           `bson:"_id"`
	UserID          string           `bson:"user_id"`
	Username        string           `bson:"username"`
	Avatar          string           `bson:"avatar,omitempty"`
	Message         *crypto.Envelope `bson:"message"`
	AirportMentions []string         `bson:"airport_mentions"`
	UserMentions    []string         `bson:"user_mentions"`
	Automodded      bool             `bson:"automodded"`
	AutomodReason   string           `bson:"automod_reason,omitempty"`
	Station         string           `bson:"station,omitempty"`
	Position        string           `bson:"position,omitempty"`
	SentAt          time.Time        `bson:"sent_at"`
	DeletedAt       *time.Time       `bson:"deleted_at,omitempty"`
}

func newMessageDocument(codec *crypto.Codec, msg *domain.ChatMessage) (*messageDocument, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	env, err := codec.Encrypt(msg.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}
	return &messageDocument{
		ID:              msg.ID,
		UserID:          msg.UserID,
		Username:        msg.Username,
		Avatar:          msg.Avatar,
		Message:         env,
		AirportMentions: nonNil(msg.AirportMentions),
		UserMentions:    nonNil(msg.UserMentions),
		Automodded:      msg.Automodded,
		AutomodReason:   msg.AutomodReason,
		SentAt:          msg.SentAt,
	}, nil
}

func (d *messageDocument) chatMessage(codec *crypto.Codec, sessionID string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:              d.ID,
		SessionID:       sessionID,
		UserID:          d.UserID,
		Username:        d.Username,
		Avatar:          d.Avatar,
		Message:         codec.DecryptString(d.Message),
		AirportMentions: nonNil(d.AirportMentions),
		UserMentions:    nonNil(d.UserMentions),
		Automodded:      d.Automodded,
		AutomodReason:   d.AutomodReason,
		SentAt:          d.SentAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type chatRepository struct {
	db    *mongo.Database
	codec *crypto.Codec
}

func NewChatRepository(db *mongo.Database, codec *crypto.Codec) domain.ChatRepository {
	return &chatRepository{db: db, codec: codec}
}

func (r *chatRepository) collection(sessionID string) (*mongo.Collection, error) {
	name, err := domain.ChatPartition(sessionID)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

func (r *chatRepository) Create(ctx context.Context, message *domain.ChatMessage) (err error) {
	ctx, span := startSpan(ctx, "chat.create")
	defer func() { endSpan(span, err) }()

	coll, err := r.collection(message.SessionID)
	if err != nil {
		return err
	}
	doc, err := newMessageDocument(r.codec, message)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, sessionID, messageID string) (*domain.ChatMessage, error) {
	coll, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	var doc messageDocument
	if err := coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	msg := doc.chatMessage(r.codec, sessionID)
	return &msg, nil
}

// ListRecent returns up to limit messages, oldest first.
func (r *chatRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	coll, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]*domain.ChatMessage, 0, len(docs))
	for i := range docs {
		msg := docs[i].chatMessage(r.codec, sessionID)
		messages = append(messages, &msg)
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *chatRepository) DeleteOwned(ctx context.Context, sessionID, messageID, userID string) error {
	coll, err := r.collection(sessionID)
	if err != nil {
		return err
	}
	if userID == "" {
		return domain.ErrNotMessageOwner
	}

	result, err := coll.DeleteOne(ctx, bson.M{"_id": messageID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.DeletedCount > 0 {
		return nil
	}
	return existsOrNotOwner(ctx, coll, bson.M{"_id": messageID})
}

// existsOrNotOwner tells a missing message apart from someone else's.
func existsOrNotOwner(ctx context.Context, coll *mongo.Collection, filter bson.M) error {
	count, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check message: %w", err)
	}
	if count == 0 {
		return domain.ErrMessageNotFound
	}
	return domain.ErrNotMessageOwner
}
