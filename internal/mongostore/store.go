// Package mongostore keeps trips and cached travel legs in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"itinerary-planner/internal/database"
	"itinerary-planner/internal/models"
)

const (
	tripsCollection       = "trips"
	travelCacheCollection = "travel_cache"
	connectTimeout        = 10 * time.Second
)

// Store is a MongoDB-backed database.DataStore
type Store struct {
	client      *mongo.Client
	trips       *tripRepository
	travelCache *travelCacheRepository
}

// New connects to uri and uses database dbName
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach MongoDB: %w", err)
	}

	db := client.Database(dbName)
	log.Printf("[MONGO] Connected: db=%s", dbName)

	return &Store{
		client:      client,
		trips:       &tripRepository{coll: db.Collection(tripsCollection)},
		travelCache: &travelCacheRepository{coll: db.Collection(travelCacheCollection)},
	}, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Trips() database.TripRepository              { return s.trips }
func (s *Store) TravelCache() database.TravelCacheRepository { return s.travelCache }

type tripRepository struct {
	coll *mongo.Collection
}

// searchFilter matches titles containing search, case-insensitively
func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	return bson.M{"title": bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}}
}

func (r *tripRepository) List(ctx context.Context, search string) ([]models.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})
	cursor, err := r.coll.Find(ctx, searchFilter(search), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer cursor.Close(ctx)

	trips := []models.Trip{}
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips: %w", err)
	}
	return trips, nil
}

func (r *tripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

func (r *tripRepository) Create(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	// BSON datetimes carry milliseconds
	now := time.Now().UTC().Truncate(time.Millisecond)
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, database.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	log.Printf("[MONGO] Created trip: id=%s", t.ID)
	return t, nil
}

func (r *tripRepository) Update(ctx context.Context, t *models.Trip) (*models.Trip, error) {
	existing, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, database.ErrNotFound
	}

	log.Printf("[MONGO] Updated trip: id=%s", t.ID)
	return t, nil
}

func (r *tripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if result.DeletedCount == 0 {
		return database.ErrNotFound
	}
	log.Printf("[MONGO] Deleted trip: id=%s", id)
	return nil
}

type travelCacheRepository struct {
	coll *mongo.Collection
}

// travelCacheDoc stores an entry under its lookup key
type travelCacheDoc struct {
	Key             string   `bson:"_id"`
	Mode            string   `bson:"mode"`
	OriginLat       float64  `bson:"originLat"`
	OriginLng       float64  `bson:"originLng"`
	DestLat         float64  `bson:"destLat"`
	DestLng         float64  `bson:"destLng"`
	DepartureBucket string   `bson:"departureBucket"`
	DurationSecs    float64  `bson:"durationSecs"`
	DistanceMeters  float64  `bson:"distanceMeters"`
	SubMode         string   `bson:"subMode,omitempty"`
	FareAmount      *float64 `bson:"fareAmount,omitempty"`
	FareCurrency    string   `bson:"fareCurrency,omitempty"`
}

func docFromEntry(e *models.TravelCacheEntry) travelCacheDoc {
	return travelCacheDoc{
		Key:             database.EntryKey(e),
		Mode:            string(e.Mode),
		OriginLat:       models.RoundCoordinate(e.Origin.Lat),
		OriginLng:       models.RoundCoordinate(e.Origin.Lng),
		DestLat:         models.RoundCoordinate(e.Destination.Lat),
		DestLng:         models.RoundCoordinate(e.Destination.Lng),
		DepartureBucket: e.DepartureBucket,
		DurationSecs:    e.DurationSecs,
		DistanceMeters:  e.DistanceMeters,
		SubMode:         string(e.SubMode),
		FareAmount:      e.FareAmount,
		FareCurrency:    e.FareCurrency,
	}
}

func (d travelCacheDoc) entry() *models.TravelCacheEntry {
	return &models.TravelCacheEntry{
		Mode:            models.TravelMode(d.Mode),
		Origin:          models.Coordinates{Lat: d.OriginLat, Lng: d.OriginLng},
		Destination:     models.Coordinates{Lat: d.DestLat, Lng: d.DestLng},
		DepartureBucket: d.DepartureBucket,
		DurationSecs:    d.DurationSecs,
		DistanceMeters:  d.DistanceMeters,
		SubMode:         models.TravelMode(d.SubMode),
		FareAmount:      d.FareAmount,
		FareCurrency:    d.FareCurrency,
	}
}

func (r *travelCacheRepository) Get(ctx context.Context, mode models.TravelMode, origin, dest models.Coordinates, bucket string) (*models.TravelCacheEntry, error) {
	var doc travelCacheDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": database.TravelCacheKey(mode, origin, dest, bucket)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel cache entry: %w", err)
	}
	return doc.entry(), nil
}

func (r *travelCacheRepository) Set(ctx context.Context, entry *models.TravelCacheEntry) error {
	doc := docFromEntry(entry)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set travel cache entry: %w", err)
	}
	return nil
}

func (r *travelCacheRepository) Clear(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear travel cache: %w", err)
	}
	return nil
}
