// Package merge reconciles fetched records against the canonical store:
// per-source freshness gating, field-level reconciliation, and the
// multi-source episode union.
package merge

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/resolver"
)

// ErrNoSlug marks a fetched record without a usable slug. The orchestrator
// counts it as a skip; it never aborts a page.
var ErrNoSlug = errors.New("merge: record has no slug")

// Engine reconciles one fetched record at a time. Items are independent, so
// the orchestrator may run Reconcile concurrently for different items.
type Engine struct {
	movies   catalog.MovieStore
	resolver *resolver.Resolver
	logger   *zap.Logger
}

// New builds an Engine.
func New(movies catalog.MovieStore, res *resolver.Resolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{movies: movies, resolver: res, logger: logger}
}

// Result reports what Reconcile did with the record.
type Result struct {
	Outcome Outcome
	// Slug is the canonical slug to feed the revalidation batcher when the
	// outcome changed the store.
	Slug string
}

// Reconcile merges raw into the canonical store. With forceUpdate false, a
// record whose per-source sync timestamp is already at or past the incoming
// modification timestamp is skipped without touching the store.
func (e *Engine) Reconcile(ctx context.Context, raw *catalog.RawMovie, forceUpdate bool) (Result, error) {
	if raw.Slug == "" {
		return Result{}, ErrNoSlug
	}

	existing, err := e.movies.FindByIdentity(ctx, identityOf(raw))
	switch {
	case err == nil:
		return e.update(ctx, existing, raw, forceUpdate)
	case errors.Is(err, catalog.ErrNotFound):
		return e.create(ctx, raw)
	default:
		return Result{}, fmt.Errorf("resolve canonical record %q: %w", raw.Slug, err)
	}
}

func identityOf(raw *catalog.RawMovie) catalog.MovieIdentity {
	return catalog.MovieIdentity{
		TMDBID:   raw.TMDB.ID,
		TMDBType: raw.TMDB.Type,
		IMDBID:   raw.IMDB.ID,
		Slug:     raw.Slug,
	}
}

func (e *Engine) update(ctx context.Context, existing *catalog.Movie, raw *catalog.RawMovie, forceUpdate bool) (Result, error) {
	if !forceUpdate && existing.SyncModified(raw.SourceName) >= raw.ModifiedAt && raw.ModifiedAt > 0 {
		return Result{Outcome: OutcomeSkipped, Slug: existing.Slug}, nil
	}

	e.reconcileFields(existing, raw)
	existing.Episodes = MergeEpisodes(existing.Episodes, raw.Episodes)
	e.applyEntities(ctx, existing, raw)
	// The sync timestamp is monotonic: an unstamped or forced older fetch
	// must not rewind it and re-open the freshness gate.
	existing.SetSyncModified(raw.SourceName,
		maxInt64(existing.SyncModified(raw.SourceName), raw.ModifiedAt))

	if err := e.movies.Update(ctx, existing); err != nil {
		return Result{}, fmt.Errorf("save canonical record %q: %w", existing.Slug, err)
	}
	return Result{Outcome: OutcomeUpdated, Slug: existing.Slug}, nil
}

func (e *Engine) create(ctx context.Context, raw *catalog.RawMovie) (Result, error) {
	m := &catalog.Movie{
		ID:             coerceID(raw.SourceID),
		Name:           raw.Name,
		Slug:           raw.Slug,
		OriginName:     raw.OriginName,
		Content:        raw.Content,
		Type:           raw.Type,
		Status:         raw.Status,
		PosterURL:      raw.PosterURL,
		ThumbURL:       raw.ThumbURL,
		Trailer:        raw.Trailer,
		Duration:       raw.Duration,
		EpisodeCurrent: raw.EpisodeCurrent,
		EpisodeTotal:   raw.EpisodeTotal,
		Quality:        raw.Quality,
		Lang:           raw.Lang,
		Notify:         raw.Notify,
		Showtimes:      raw.Showtimes,
		Year:           raw.Year,
		View:           maxInt64(raw.View, 0),
		TMDB:           raw.TMDB,
		IMDB:           raw.IMDB,
		Episodes:       MergeEpisodes(nil, raw.Episodes),
	}
	e.applyEntities(ctx, m, raw)
	m.SetSyncModified(raw.SourceName, raw.ModifiedAt)

	err := e.movies.Create(ctx, m)
	if errors.Is(err, catalog.ErrDuplicateKey) {
		// Concurrent create from another source; merge into the winner.
		winner, ferr := e.movies.FindByIdentity(ctx, identityOf(raw))
		if ferr != nil {
			return Result{}, fmt.Errorf("re-read %q after create conflict: %w", raw.Slug, ferr)
		}
		return e.update(ctx, winner, raw, false)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create canonical record %q: %w", raw.Slug, err)
	}
	return Result{Outcome: OutcomeCreated, Slug: m.Slug}, nil
}

// coerceID reuses the source's own identifier when it is a valid ObjectID;
// otherwise a fresh id is minted. A foreign id is never trusted blindly
// into the primary key.
func coerceID(sourceID string) primitive.ObjectID {
	if oid, err := primitive.ObjectIDFromHex(sourceID); err == nil {
		return oid
	}
	return primitive.NewObjectID()
}

// reconcileFields applies the per-field win policy: incoming wins, with the
// existing value kept when the incoming one is absent. Quality and view
// count use explicit comparison policies.
func (e *Engine) reconcileFields(m *catalog.Movie, raw *catalog.RawMovie) {
	m.Name = pick(raw.Name, m.Name)
	m.OriginName = pick(raw.OriginName, m.OriginName)
	m.Content = pick(raw.Content, m.Content)
	m.Type = pick(raw.Type, m.Type)
	m.Status = pick(raw.Status, m.Status)
	m.PosterURL = pick(raw.PosterURL, m.PosterURL)
	m.ThumbURL = pick(raw.ThumbURL, m.ThumbURL)
	m.Trailer = pick(raw.Trailer, m.Trailer)
	m.Duration = pick(raw.Duration, m.Duration)
	m.EpisodeCurrent = pick(raw.EpisodeCurrent, m.EpisodeCurrent)
	m.EpisodeTotal = pick(raw.EpisodeTotal, m.EpisodeTotal)
	m.Lang = pick(raw.Lang, m.Lang)
	m.Notify = pick(raw.Notify, m.Notify)
	m.Showtimes = pick(raw.Showtimes, m.Showtimes)
	if raw.Year != 0 {
		m.Year = raw.Year
	}

	// Quality only ever moves up the ordinal scale.
	m.Quality = catalog.BetterQuality(m.Quality, raw.Quality)
	// View counts are monotonic; a lagging source must never regress them.
	m.View = maxInt64(m.View, maxInt64(raw.View, 0))

	if raw.TMDB.ID != "" {
		m.TMDB = raw.TMDB
	}
	if raw.IMDB.ID != "" {
		m.IMDB = raw.IMDB
	}
}

// applyEntities resolves people/taxonomy references and swaps them onto the
// record, keeping the existing references for any set the incoming record
// did not populate.
func (e *Engine) applyEntities(ctx context.Context, m *catalog.Movie, raw *catalog.RawMovie) {
	if e.resolver == nil {
		return
	}
	people := e.resolver.ResolvePeople(ctx, raw)
	if len(people.Actors) > 0 {
		m.Actors = people.Actors
	}
	if len(people.Directors) > 0 {
		m.Directors = people.Directors
	}
	if ids := e.resolver.ResolveTaxonomies(ctx, catalog.KindCategory, raw.Categories); len(ids) > 0 {
		m.Categories = ids
	}
	if ids := e.resolver.ResolveTaxonomies(ctx, catalog.KindRegion, raw.Regions); len(ids) > 0 {
		m.Regions = ids
	}
}

func pick(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
