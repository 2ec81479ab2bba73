// Package memory provides in-process implementations of the catalog store
// interfaces. They enforce the same unique-index semantics as the Mongo
// store and back the component tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// MovieStore is an in-memory catalog.MovieStore with a unique slug index.
type MovieStore struct {
	mu     sync.Mutex
	movies map[primitive.ObjectID]*catalog.Movie
	bySlug map[string]primitive.ObjectID
}

// NewMovieStore creates an empty movie store.
func NewMovieStore() *MovieStore {
	return &MovieStore{
		movies: make(map[primitive.ObjectID]*catalog.Movie),
		bySlug: make(map[string]primitive.ObjectID),
	}
}

func cloneMovie(m *catalog.Movie) *catalog.Movie {
	cp := *m
	cp.Actors = append([]primitive.ObjectID(nil), m.Actors...)
	cp.Directors = append([]primitive.ObjectID(nil), m.Directors...)
	cp.Categories = append([]primitive.ObjectID(nil), m.Categories...)
	cp.Regions = append([]primitive.ObjectID(nil), m.Regions...)
	cp.Episodes = make([]catalog.Episode, len(m.Episodes))
	for i, ep := range m.Episodes {
		cp.Episodes[i] = ep
		cp.Episodes[i].ServerData = append([]catalog.EpisodeServerData(nil), ep.ServerData...)
	}
	if m.LastSyncModified != nil {
		cp.LastSyncModified = make(map[string]int64, len(m.LastSyncModified))
		for k, v := range m.LastSyncModified {
			cp.LastSyncModified[k] = v
		}
	}
	return &cp
}

// FindByIdentity mirrors the Mongo priority chain: TMDB id + type, IMDB id,
// then slug.
func (s *MovieStore) FindByIdentity(_ context.Context, id catalog.MovieIdentity) (*catalog.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.TMDBID != "" {
		for _, m := range s.movies {
			if m.TMDB.ID == id.TMDBID && m.TMDB.Type == id.TMDBType {
				return cloneMovie(m), nil
			}
		}
	}
	if id.IMDBID != "" {
		for _, m := range s.movies {
			if m.IMDB.ID == id.IMDBID {
				return cloneMovie(m), nil
			}
		}
	}
	if id.Slug != "" {
		if oid, ok := s.bySlug[id.Slug]; ok {
			return cloneMovie(s.movies[oid]), nil
		}
	}
	return nil, catalog.ErrNotFound
}

// Create inserts the record, enforcing slug uniqueness.
func (s *MovieStore) Create(_ context.Context, m *catalog.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySlug[m.Slug]; exists {
		return fmt.Errorf("insert movie %q: %w", m.Slug, catalog.ErrDuplicateKey)
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.movies[m.ID] = cloneMovie(m)
	s.bySlug[m.Slug] = m.ID
	return nil
}

// Update replaces the stored record by id.
func (s *MovieStore) Update(_ context.Context, m *catalog.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.movies[m.ID]
	if !ok {
		return fmt.Errorf("update movie %q: %w", m.Slug, catalog.ErrNotFound)
	}
	if old.Slug != m.Slug {
		delete(s.bySlug, old.Slug)
		s.bySlug[m.Slug] = m.ID
	}
	m.UpdatedAt = time.Now().UTC()
	s.movies[m.ID] = cloneMovie(m)
	return nil
}

// Len reports the number of stored records.
func (s *MovieStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

// EntityStore is an in-memory catalog.EntityStore with a per-kind unique
// slug index.
type EntityStore struct {
	mu    sync.Mutex
	kinds map[catalog.EntityKind]map[string]catalog.Entity
}

// NewEntityStore creates an empty entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{kinds: make(map[catalog.EntityKind]map[string]catalog.Entity)}
}

func (s *EntityStore) table(kind catalog.EntityKind) map[string]catalog.Entity {
	t, ok := s.kinds[kind]
	if !ok {
		t = make(map[string]catalog.Entity)
		s.kinds[kind] = t
	}
	return t
}

// FindByExternalIDs returns every entity of kind with an external id in ids.
func (s *EntityStore) FindByExternalIDs(_ context.Context, kind catalog.EntityKind, ids []string) ([]catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []catalog.Entity
	for _, e := range s.table(kind) {
		if e.ExternalID == "" {
			continue
		}
		if _, ok := want[e.ExternalID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindBySlug returns the entity holding slug.
func (s *EntityStore) FindBySlug(_ context.Context, kind catalog.EntityKind, slug string) (*catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.table(kind)[slug]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := e
	return &cp, nil
}

// Insert creates a new entity, enforcing slug uniqueness.
func (s *EntityStore) Insert(_ context.Context, kind catalog.EntityKind, e catalog.Entity) (catalog.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(kind)
	if _, exists := t[e.Slug]; exists {
		return catalog.Entity{}, fmt.Errorf("insert %s %q: %w", kind, e.Slug, catalog.ErrDuplicateKey)
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	t[e.Slug] = e
	return e, nil
}

// SetExternalID enriches an entity that has no external id yet.
func (s *EntityStore) SetExternalID(_ context.Context, kind catalog.EntityKind, id primitive.ObjectID, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slug, e := range s.table(kind) {
		if e.ID == id {
			if e.ExternalID != "" {
				return nil
			}
			e.ExternalID = externalID
			s.table(kind)[slug] = e
			return nil
		}
	}
	return fmt.Errorf("set external id on %s: %w", kind, catalog.ErrNotFound)
}

// SettingsStore is an in-memory catalog.SettingsStore.
type SettingsStore struct {
	mu       sync.Mutex
	settings map[string]catalog.SourceSettings
}

// NewSettingsStore creates an empty settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]catalog.SourceSettings)}
}

// FindConfig loads the settings for one source.
func (s *SettingsStore) FindConfig(_ context.Context, name string) (*catalog.SourceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.settings[name]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := set
	return &cp, nil
}

// UpsertConfig stores the settings for one source.
func (s *SettingsStore) UpsertConfig(_ context.Context, set catalog.SourceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[set.Name] = set
	return nil
}
