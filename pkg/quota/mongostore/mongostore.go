// Package mongostore provides a MongoDB-backed quota.UsageStore.
//
// MongoDB cannot run the admission rule server-side in one statement, so the
// store reads the counter (creating it with an upsert when absent) and writes
// the result with a compare-and-set filtered on the values it read. A lost race
// re-reads and tries again.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/accessgate/pkg/quota"
)

// DefaultCollection is the collection holding usage counters.
const DefaultCollection = "usage"

// Store is a MongoDB-backed UsageStore.
type Store struct {
	coll        *mongo.Collection
	maxAttempts int
}

var _ quota.UsageStore = (*Store)(nil)

// Option configures Store.
type Option func(*storeConfig)

type storeConfig struct {
	collection  string
	maxAttempts int
}

// WithCollection sets the collection name (default "usage").
func WithCollection(name string) Option {
	return func(c *storeConfig) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithMaxAttempts bounds compare-and-set retries per call (default 32).
func WithMaxAttempts(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// New creates a Store on the given database.
func New(db *mongo.Database, opts ...Option) *Store {
	cfg := storeConfig{collection: DefaultCollection, maxAttempts: 32}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{
		coll:        db.Collection(cfg.collection),
		maxAttempts: cfg.maxAttempts,
	}
}

type counterID struct {
	UserID  string `bson:"user_id"`
	APIName string `bson:"api_name"`
}

type counterDoc struct {
	ID          counterID `bson:"_id"`
	Count       int64     `bson:"count"`
	WindowStart time.Time `bson:"window_start"`
}

// ConsumeIfUnderLimit applies the admission rule with an optimistic
// compare-and-set. Returns quota.ErrContention when every attempt lost a race.
func (s *Store) ConsumeIfUnderLimit(ctx context.Context, userID, apiName string, limit int64, window time.Duration, now time.Time) (bool, quota.UsageCounter, error) {
	if userID == "" || apiName == "" {
		return false, quota.UsageCounter{}, quota.ErrInvalidKey
	}
	// BSON dates keep milliseconds
	now = now.UTC().Truncate(time.Millisecond)
	id := counterID{UserID: userID, APIName: apiName}

	upsert := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	for range s.maxAttempts {
		var doc counterDoc
		err := s.coll.FindOneAndUpdate(ctx,
			bson.D{{Key: "_id", Value: id}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "count", Value: int64(0)},
				{Key: "window_start", Value: now},
			}}},
			upsert,
		).Decode(&doc)
		if mongo.IsDuplicateKeyError(err) {
			// concurrent upsert inserted first
			continue
		}
		if err != nil {
			return false, quota.UsageCounter{}, fmt.Errorf("mongostore: load counter: %w", err)
		}

		current := quota.UsageCounter{
			UserID:      userID,
			APIName:     apiName,
			Count:       doc.Count,
			WindowStart: doc.WindowStart.UTC(),
		}
		next, allowed, changed := quota.Admit(current, limit, window, now)
		if !changed {
			return allowed, next, nil
		}

		res, err := s.coll.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: id},
				{Key: "count", Value: doc.Count},
				{Key: "window_start", Value: doc.WindowStart},
			},
			bson.D{{Key: "$set", Value: bson.D{
				{Key: "count", Value: next.Count},
				{Key: "window_start", Value: next.WindowStart},
			}}},
		)
		if err != nil {
			return false, quota.UsageCounter{}, fmt.Errorf("mongostore: update counter: %w", err)
		}
		if res.MatchedCount == 1 {
			return allowed, next, nil
		}
	}

	return false, quota.UsageCounter{}, fmt.Errorf("mongostore: %d attempts: %w", s.maxAttempts, quota.ErrContention)
}

// Get returns the stored counter.
func (s *Store) Get(ctx context.Context, userID, apiName string) (quota.UsageCounter, error) {
	var doc counterDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: counterID{UserID: userID, APIName: apiName}}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return quota.UsageCounter{}, quota.ErrCounterNotFound
	}
	if err != nil {
		return quota.UsageCounter{}, fmt.Errorf("mongostore: get: %w", err)
	}
	return quota.UsageCounter{
		UserID:      userID,
		APIName:     apiName,
		Count:       doc.Count,
		WindowStart: doc.WindowStart.UTC(),
	}, nil
}

// Reset deletes the counter document.
func (s *Store) Reset(ctx context.Context, userID, apiName string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: counterID{UserID: userID, APIName: apiName}}})
	if err != nil {
		return fmt.Errorf("mongostore: reset: %w", err)
	}
	if res.DeletedCount == 0 {
		return quota.ErrCounterNotFound
	}
	return nil
}
