// Package resolver deduplicates and upserts the people and taxonomy
// references an incoming record carries, external-identifier first with a
// slug fallback.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinefeed/cinefeed/internal/catalog"
)

// defaultFanout bounds concurrent per-entity store lookups for one movie.
const defaultFanout = 4

// Resolver resolves raw credit/taxonomy references into entity ids. A
// lookup failure for one entity never aborts resolution of the others.
type Resolver struct {
	entities catalog.EntityStore
	logger   *zap.Logger
	fanout   int
}

// New builds a Resolver over the entity store.
func New(entities catalog.EntityStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{entities: entities, logger: logger, fanout: defaultFanout}
}

// People is the resolved id set for one movie's credits.
type People struct {
	Actors    []primitive.ObjectID
	Directors []primitive.ObjectID
}

// ResolvePeople resolves the rating-site credits on raw, falling back to
// the manual free-text name lists for any role the credits left empty.
func (r *Resolver) ResolvePeople(ctx context.Context, raw *catalog.RawMovie) People {
	var out People
	out.Actors = r.resolveCredits(ctx, catalog.KindActor, creditsForRole(raw.Credits, catalog.RoleActor))
	out.Directors = r.resolveCredits(ctx, catalog.KindDirector, creditsForRole(raw.Credits, catalog.RoleDirector))

	// Manual lists are a fallback only: consulted when no credit data
	// produced a match for that role.
	if len(out.Actors) == 0 {
		out.Actors = r.resolveNames(ctx, catalog.KindActor, raw.ActorNames)
	}
	if len(out.Directors) == 0 {
		out.Directors = r.resolveNames(ctx, catalog.KindDirector, raw.DirectorNames)
	}
	return out
}

// ResolveTaxonomies resolves category/region references by slug,
// creating missing entries.
func (r *Resolver) ResolveTaxonomies(ctx context.Context, kind catalog.EntityKind, refs []catalog.RawTaxonomy) []primitive.ObjectID {
	var names []string
	for _, ref := range refs {
		name := ref.Name
		if name == "" {
			name = ref.Slug
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return r.resolveNames(ctx, kind, names)
}

func creditsForRole(credits []catalog.RawPerson, role catalog.RawPersonRole) []catalog.RawPerson {
	var out []catalog.RawPerson
	for _, c := range credits {
		if c.Role == role && c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

func (r *Resolver) resolveCredits(ctx context.Context, kind catalog.EntityKind, credits []catalog.RawPerson) []primitive.ObjectID {
	if len(credits) == 0 {
		return nil
	}

	// Batched external-id lookup first; one query for the whole credit list.
	var externalIDs []string
	for _, c := range credits {
		if c.ExternalID != "" {
			externalIDs = append(externalIDs, c.ExternalID)
		}
	}
	byExternal := make(map[string]catalog.Entity)
	if len(externalIDs) > 0 {
		found, err := r.entities.FindByExternalIDs(ctx, kind, externalIDs)
		if err != nil {
			r.logger.Warn("external id batch lookup failed",
				zap.String("kind", string(kind)), zap.Error(err))
		}
		for _, e := range found {
			byExternal[e.ExternalID] = e
		}
	}

	ids := make([]primitive.ObjectID, len(credits))
	var mu sync.Mutex
	seen := make(map[primitive.ObjectID]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)
	for i, credit := range credits {
		i, credit := i, credit
		g.Go(func() error {
			var id primitive.ObjectID
			if e, ok := byExternal[credit.ExternalID]; ok && credit.ExternalID != "" {
				id = e.ID
			} else {
				resolved, err := r.resolveOne(gctx, kind, credit.Name, credit.ExternalID)
				if err != nil {
					r.logger.Warn("entity resolution failed",
						zap.String("kind", string(kind)),
						zap.String("name", credit.Name),
						zap.Error(err),
					)
					return nil
				}
				id = resolved
			}
			mu.Lock()
			ids[i] = id
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var out []primitive.ObjectID
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *Resolver) resolveNames(ctx context.Context, kind catalog.EntityKind, names []string) []primitive.ObjectID {
	var out []primitive.ObjectID
	seen := make(map[primitive.ObjectID]struct{})
	for _, name := range names {
		if name == "" {
			continue
		}
		id, err := r.resolveOne(ctx, kind, name, "")
		if err != nil {
			r.logger.Warn("entity resolution failed",
				zap.String("kind", string(kind)),
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// resolveOne runs the slug-fallback chain for one entity. When the slug is
// already owned by a different external identity the incoming one is stored
// under a disambiguated slug instead of overwriting the existing record.
func (r *Resolver) resolveOne(ctx context.Context, kind catalog.EntityKind, name, externalID string) (primitive.ObjectID, error) {
	slug := slugOrSynthesize(name)

	existing, err := r.entities.FindBySlug(ctx, kind, slug)
	switch {
	case err == nil:
		switch {
		case existing.ExternalID == externalID || externalID == "":
			return existing.ID, nil
		case existing.ExternalID == "":
			if err := r.entities.SetExternalID(ctx, kind, existing.ID, externalID); err != nil {
				r.logger.Warn("entity enrichment failed",
					zap.String("kind", string(kind)),
					zap.String("slug", slug),
					zap.Error(err),
				)
			}
			return existing.ID, nil
		default:
			// Same human-readable slug, different identity: keep both.
			return r.insert(ctx, kind, name, collisionSlug(slug, externalID), externalID)
		}
	case errors.Is(err, catalog.ErrNotFound):
		return r.insert(ctx, kind, name, slug, externalID)
	default:
		return primitive.NilObjectID, fmt.Errorf("find %s by slug %q: %w", kind, slug, err)
	}
}

func (r *Resolver) insert(ctx context.Context, kind catalog.EntityKind, name, slug, externalID string) (primitive.ObjectID, error) {
	e, err := r.entities.Insert(ctx, kind, catalog.Entity{
		Name:       name,
		Slug:       slug,
		ExternalID: externalID,
	})
	if errors.Is(err, catalog.ErrDuplicateKey) {
		// Lost a concurrent-create race; the winner is authoritative.
		winner, ferr := r.entities.FindBySlug(ctx, kind, slug)
		if ferr != nil {
			return primitive.NilObjectID, fmt.Errorf("re-read %s %q after conflict: %w", kind, slug, ferr)
		}
		return winner.ID, nil
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return e.ID, nil
}
