package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// EntityStore implements catalog.EntityStore; each catalog.EntityKind maps
// to its own collection.
type EntityStore struct {
	db *mongo.Database
}

func (s *EntityStore) coll(kind catalog.EntityKind) *mongo.Collection {
	return s.db.Collection(string(kind))
}

// FindByExternalIDs batches the external-id lookup with a single $in query.
func (s *EntityStore) FindByExternalIDs(ctx context.Context, kind catalog.EntityKind, ids []string) ([]catalog.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.coll(kind).Find(ctx, bson.M{"external_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find %s by external ids: %w", kind, err)
	}
	defer cur.Close(ctx)

	var out []catalog.Entity
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}

// FindBySlug returns the entity holding slug, or catalog.ErrNotFound.
func (s *EntityStore) FindBySlug(ctx context.Context, kind catalog.EntityKind, slug string) (*catalog.Entity, error) {
	var e catalog.Entity
	err := s.coll(kind).FindOne(ctx, bson.M{"slug": slug}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by slug %q: %w", kind, slug, err)
	}
	return &e, nil
}

// Insert creates a new entity and returns it with its assigned id.
func (s *EntityStore) Insert(ctx context.Context, kind catalog.EntityKind, e catalog.Entity) (catalog.Entity, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := s.coll(kind).InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return catalog.Entity{}, fmt.Errorf("insert %s %q: %w", kind, e.Slug, catalog.ErrDuplicateKey)
		}
		return catalog.Entity{}, fmt.Errorf("insert %s %q: %w", kind, e.Slug, err)
	}
	return e, nil
}

// SetExternalID enriches an entity that carries no external id yet. The
// filter guards against clobbering a different identity in a race.
func (s *EntityStore) SetExternalID(ctx context.Context, kind catalog.EntityKind, id primitive.ObjectID, externalID string) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"external_id": bson.M{"$exists": false}},
			bson.M{"external_id": ""},
		},
	}
	res, err := s.coll(kind).UpdateOne(ctx, filter, bson.M{"$set": bson.M{"external_id": externalID}})
	if err != nil {
		return fmt.Errorf("set external id on %s: %w", kind, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set external id on %s: %w", kind, catalog.ErrNotFound)
	}
	return nil
}
