package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

// flightDocument keeps the callsign and owner readable for indexing; the
// strip itself is sealed in payload.
type flightDocument struct {
	ID        string           `bson:"_id"`
	Callsign  string           `bson:"callsign"`
	UserID    string           `bson:"user_id,omitempty"`
	Payload   *crypto.Envelope `bson:"payload"`
	CreatedAt time.Time        `bson:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

type flightRepository struct {
	db    *mongo.Database
	codec *crypto.Codec
}

func NewFlightRepository(db *mongo.Database, codec *crypto.Codec) domain.FlightRepository {
	return &flightRepository{db: db, codec: codec}
}

func (r *flightRepository) collection(sessionID string) (*mongo.Collection, error) {
	name, err := domain.FlightsPartition(sessionID)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(name), nil
}

func (r *flightRepository) toDocument(f *domain.Flight) (*flightDocument, error) {
	env, err := r.codec.Encrypt(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt flight: %w", err)
	}
	return &flightDocument{
		ID:        f.ID,
		Callsign:  f.Callsign,
		UserID:    f.UserID,
		Payload:   env,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}, nil
}

func (r *flightRepository) fromDocument(sessionID string, doc *flightDocument) *domain.Flight {
	f := &domain.Flight{}
	if doc.Payload != nil {
		r.codec.DecryptJSON(doc.Payload, f)
	}
	f.ID = doc.ID
	f.SessionID = sessionID
	f.Callsign = doc.Callsign
	f.UserID = doc.UserID
	f.CreatedAt = doc.CreatedAt
	f.UpdatedAt = doc.UpdatedAt
	return f
}

func (r *flightRepository) Create(ctx context.Context, flight *domain.Flight) (err error) {
	ctx, span := startSpan(ctx, "flights.create", attribute.String("session.id", flight.SessionID))
	defer func() { endSpan(span, err) }()

	coll, err := r.collection(flight.SessionID)
	if err != nil {
		return err
	}
	if flight.ID == "" {
		flight.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if flight.CreatedAt.IsZero() {
		flight.CreatedAt = now
	}
	flight.UpdatedAt = now

	doc, err := r.toDocument(flight)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert flight: %w", err)
	}
	return nil
}

func (r *flightRepository) GetByID(ctx context.Context, sessionID, flightID string) (*domain.Flight, error) {
	coll, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	var doc flightDocument
	if err := coll.FindOne(ctx, bson.M{"_id": flightID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}
	return r.fromDocument(sessionID, &doc), nil
}

func (r *flightRepository) ListBySession(ctx context.Context, sessionID string) (_ []*domain.Flight, err error) {
	ctx, span := startSpan(ctx, "flights.list", attribute.String("session.id", sessionID))
	defer func() { endSpan(span, err) }()

	coll, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []flightDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode flights: %w", err)
	}

	flights := make([]*domain.Flight, 0, len(docs))
	for i := range docs {
		flights = append(flights, r.fromDocument(sessionID, &docs[i]))
	}
	return flights, nil
}

// Update rewrites the sealed payload. Concurrent writers are last write
// wins.
func (r *flightRepository) Update(ctx context.Context, flight *domain.Flight) (err error) {
	ctx, span := startSpan(ctx, "flights.update", attribute.String("session.id", flight.SessionID))
	defer func() { endSpan(span, err) }()

	coll, err := r.collection(flight.SessionID)
	if err != nil {
		return err
	}
	flight.UpdatedAt = time.Now().UTC()

	doc, err := r.toDocument(flight)
	if err != nil {
		return err
	}

	result, err := coll.UpdateOne(ctx, bson.M{"_id": flight.ID}, bson.M{
		"$set": bson.M{
			"callsign":   doc.Callsign,
			"payload":    doc.Payload,
			"updated_at": doc.UpdatedAt,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update flight: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *flightRepository) Delete(ctx context.Context, sessionID, flightID string) error {
	coll, err := r.collection(sessionID)
	if err != nil {
		return err
	}

	result, err := coll.DeleteOne(ctx, bson.M{"_id": flightID})
	if err != nil {
		return fmt.Errorf("failed to delete flight: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *flightRepository) Count(ctx context.Context, sessionID string) (int64, error) {
	coll, err := r.collection(sessionID)
	if err != nil {
		return 0, err
	}
	return coll.CountDocuments(ctx, bson.M{})
}

func (r *flightRepository) CountByDay(ctx context.Context, sessionID string, since time.Time) (map[string]int64, error) {
	coll, err := r.collection(sessionID)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$created_at",
				"timezone": "UTC",
			}},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate flights: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Day   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode flight counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Day] = row.Count
	}
	return counts, nil
}
