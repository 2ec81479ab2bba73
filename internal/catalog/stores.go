package catalog

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store error sentinels. Implementations wrap these so callers can classify
// with errors.Is regardless of the backing database.
var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrDuplicateKey = errors.New("catalog: duplicate key")
)

// EntityKind names one entity collection.
type EntityKind string

// Entity collections the resolver deduplicates against.
const (
	KindActor    EntityKind = "actors"
	KindDirector EntityKind = "directors"
	KindCategory EntityKind = "categories"
	KindRegion   EntityKind = "regions"
)

// Entity is a person or taxonomy reference. Slug is unique per collection;
// ExternalID is set only for rating-site-backed people.
type Entity struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Slug       string             `bson:"slug" json:"slug"`
	ExternalID string             `bson:"external_id,omitempty" json:"external_id,omitempty"`
}

// MovieIdentity is the filter used to locate an existing canonical record.
// Fields are tried in priority order: TMDB id + type, then IMDB id, then slug.
type MovieIdentity struct {
	TMDBID   string
	TMDBType string
	IMDBID   string
	Slug     string
}

// MovieStore persists canonical movie records.
type MovieStore interface {
	// FindByIdentity resolves an existing record by the identity priority
	// chain, returning ErrNotFound when no field matches.
	FindByIdentity(ctx context.Context, id MovieIdentity) (*Movie, error)
	Create(ctx context.Context, m *Movie) error
	Update(ctx context.Context, m *Movie) error
}

// EntityStore persists people and taxonomy entities.
type EntityStore interface {
	// FindByExternalIDs returns every entity of kind whose ExternalID is in
	// ids. Missing ids are simply absent from the result.
	FindByExternalIDs(ctx context.Context, kind EntityKind, ids []string) ([]Entity, error)
	FindBySlug(ctx context.Context, kind EntityKind, slug string) (*Entity, error)
	Insert(ctx context.Context, kind EntityKind, e Entity) (Entity, error)
	// SetExternalID enriches an existing entity that has no external id yet.
	SetExternalID(ctx context.Context, kind EntityKind, id primitive.ObjectID, externalID string) error
}

// SettingsStore persists per-source crawler configuration edited by the
// administrative surface.
type SettingsStore interface {
	FindConfig(ctx context.Context, name string) (*SourceSettings, error)
	UpsertConfig(ctx context.Context, s SourceSettings) error
}

// SourceSettings is the persisted, hot-reloadable slice of a source's
// crawler configuration.
type SourceSettings struct {
	Name               string `bson:"name" json:"name"`
	Host               string `bson:"host" json:"host"`
	ImageHost          string `bson:"image_host,omitempty" json:"image_host,omitempty"`
	CronSchedule       string `bson:"cron_schedule" json:"cron_schedule"`
	ForceUpdate        bool   `bson:"force_update" json:"force_update"`
	MaxRetries         int    `bson:"max_retries" json:"max_retries"`
	RateLimitDelayMs   int    `bson:"rate_limit_delay_ms" json:"rate_limit_delay_ms"`
	MaxConcurrent      int    `bson:"max_concurrent" json:"max_concurrent"`
	MaxContinuousSkips int    `bson:"max_continuous_skips" json:"max_continuous_skips"`
	Enabled            bool   `bson:"enabled" json:"enabled"`
}
