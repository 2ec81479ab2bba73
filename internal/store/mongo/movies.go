package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// MovieStore implements catalog.MovieStore on the movies collection.
type MovieStore struct {
	coll *mongo.Collection
}

// FindByIdentity tries the identity filters in priority order: TMDB id plus
// media type, then IMDB id, then slug. Returns catalog.ErrNotFound when no
// filter matches.
func (s *MovieStore) FindByIdentity(ctx context.Context, id catalog.MovieIdentity) (*catalog.Movie, error) {
	var filters []bson.M
	if id.TMDBID != "" {
		filters = append(filters, bson.M{"tmdb.id": id.TMDBID, "tmdb.type": id.TMDBType})
	}
	if id.IMDBID != "" {
		filters = append(filters, bson.M{"imdb.id": id.IMDBID})
	}
	if id.Slug != "" {
		filters = append(filters, bson.M{"slug": id.Slug})
	}
	for _, filter := range filters {
		var m catalog.Movie
		err := s.coll.FindOne(ctx, filter).Decode(&m)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find movie: %w", err)
		}
		return &m, nil
	}
	return nil, catalog.ErrNotFound
}

// Create inserts a new canonical record, translating unique-index conflicts
// into catalog.ErrDuplicateKey so the merge engine can re-resolve.
func (s *MovieStore) Create(ctx context.Context, m *catalog.Movie) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert movie %q: %w", m.Slug, catalog.ErrDuplicateKey)
		}
		return fmt.Errorf("insert movie %q: %w", m.Slug, err)
	}
	return nil
}

// Update replaces the stored record by id.
func (s *MovieStore) Update(ctx context.Context, m *catalog.Movie) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("update movie %q: %w", m.Slug, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update movie %q: %w", m.Slug, catalog.ErrNotFound)
	}
	return nil
}
