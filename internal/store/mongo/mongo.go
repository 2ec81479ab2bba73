// Package mongo implements the catalog store interfaces on the MongoDB
// document store.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store bundles the typed collection accessors over one database handle.
type Store struct {
	db *mongo.Database
}

// Connect dials uri, pings the primary, and returns a Store over dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{db: client.Database(dbName)}, nil
}

// Movies returns the canonical movie store.
func (s *Store) Movies() *MovieStore {
	return &MovieStore{coll: s.db.Collection("movies")}
}

// Entities returns the people/taxonomy store.
func (s *Store) Entities() *EntityStore {
	return &EntityStore{db: s.db}
}

// Settings returns the persisted crawler-settings store.
func (s *Store) Settings() *SettingsStore {
	return &SettingsStore{coll: s.db.Collection("crawler_settings")}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}
