package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// SettingsStore implements catalog.SettingsStore on the crawler_settings
// collection, keyed by source name.
type SettingsStore struct {
	coll *mongo.Collection
}

// FindConfig loads the persisted settings for one source.
func (s *SettingsStore) FindConfig(ctx context.Context, name string) (*catalog.SourceSettings, error) {
	var out catalog.SourceSettings
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find settings %q: %w", name, err)
	}
	return &out, nil
}

// UpsertConfig stores the settings for one source, creating the document on
// first write.
func (s *SettingsStore) UpsertConfig(ctx context.Context, set catalog.SourceSettings) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"name": set.Name}, set, opts); err != nil {
		return fmt.Errorf("upsert settings %q: %w", set.Name, err)
	}
	return nil
}
