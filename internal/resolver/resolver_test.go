package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/store/memory"
)

func TestResolvePeopleCreatesMissingEntities(t *testing.T) {
	entities := memory.NewEntityStore()
	r := New(entities, nil)

	raw := &catalog.RawMovie{
		Credits: []catalog.RawPerson{
			{ExternalID: "101", Name: "John Smith", Role: catalog.RoleActor},
			{ExternalID: "102", Name: "Jane Doe", Role: catalog.RoleActor},
			{ExternalID: "201", Name: "Ang Lee", Role: catalog.RoleDirector},
		},
	}
	people := r.ResolvePeople(context.Background(), raw)
	require.Len(t, people.Actors, 2)
	require.Len(t, people.Directors, 1)

	actor, err := entities.FindBySlug(context.Background(), catalog.KindActor, "john-smith")
	require.NoError(t, err)
	require.Equal(t, "101", actor.ExternalID)
}

func TestResolvePeopleIsIdempotent(t *testing.T) {
	entities := memory.NewEntityStore()
	r := New(entities, nil)

	raw := &catalog.RawMovie{
		Credits: []catalog.RawPerson{
			{ExternalID: "101", Name: "John Smith", Role: catalog.RoleActor},
		},
	}
	first := r.ResolvePeople(context.Background(), raw)
	second := r.ResolvePeople(context.Background(), raw)
	require.Equal(t, first.Actors, second.Actors)
}

func TestResolveOneEnrichesSlugOnlyEntity(t *testing.T) {
	entities := memory.NewEntityStore()
	seeded, err := entities.Insert(context.Background(), catalog.KindActor, catalog.Entity{
		Name: "John Smith",
		Slug: "john-smith",
	})
	require.NoError(t, err)

	r := New(entities, nil)
	id, err := r.resolveOne(context.Background(), catalog.KindActor, "John Smith", "101")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, id)

	enriched, err := entities.FindBySlug(context.Background(), catalog.KindActor, "john-smith")
	require.NoError(t, err)
	require.Equal(t, "101", enriched.ExternalID)
}

func TestResolveOneDisambiguatesSlugCollision(t *testing.T) {
	entities := memory.NewEntityStore()
	_, err := entities.Insert(context.Background(), catalog.KindActor, catalog.Entity{
		Name:       "John Smith",
		Slug:       "john-smith",
		ExternalID: "101",
	})
	require.NoError(t, err)

	r := New(entities, nil)
	id, err := r.resolveOne(context.Background(), catalog.KindActor, "John Smith", "99")
	require.NoError(t, err)
	require.False(t, id.IsZero())

	// A different external identity with the same human slug gets a
	// suffixed slug instead of overwriting the original.
	sibling, err := entities.FindBySlug(context.Background(), catalog.KindActor, "john-smith-t-99")
	require.NoError(t, err)
	require.Equal(t, id, sibling.ID)
	require.Equal(t, "99", sibling.ExternalID)

	original, err := entities.FindBySlug(context.Background(), catalog.KindActor, "john-smith")
	require.NoError(t, err)
	require.Equal(t, "101", original.ExternalID)
}

func TestResolvePeopleManualFallback(t *testing.T) {
	entities := memory.NewEntityStore()
	r := New(entities, nil)

	raw := &catalog.RawMovie{
		ActorNames:    []string{"Trần Thành", "Trần Thành", ""},
		DirectorNames: []string{"Victor Vũ"},
	}
	people := r.ResolvePeople(context.Background(), raw)
	require.Len(t, people.Actors, 1, "duplicate and empty names collapse")
	require.Len(t, people.Directors, 1)

	_, err := entities.FindBySlug(context.Background(), catalog.KindActor, "tran-thanh")
	require.NoError(t, err)
}

func TestResolvePeopleCreditsSuppressManualLists(t *testing.T) {
	entities := memory.NewEntityStore()
	r := New(entities, nil)

	raw := &catalog.RawMovie{
		Credits: []catalog.RawPerson{
			{ExternalID: "101", Name: "John Smith", Role: catalog.RoleActor},
		},
		ActorNames: []string{"Someone Else"},
	}
	people := r.ResolvePeople(context.Background(), raw)
	require.Len(t, people.Actors, 1)

	_, err := entities.FindBySlug(context.Background(), catalog.KindActor, "someone-else")
	require.ErrorIs(t, err, catalog.ErrNotFound, "manual list is consulted only when credits matched nothing")
}

func TestResolveTaxonomies(t *testing.T) {
	entities := memory.NewEntityStore()
	r := New(entities, nil)

	ids := r.ResolveTaxonomies(context.Background(), catalog.KindCategory, []catalog.RawTaxonomy{
		{Name: "Hành Động", Slug: "hanh-dong"},
		{Name: "Hành Động"},
		{Slug: "kinh-di"},
	})
	require.Len(t, ids, 2)

	_, err := entities.FindBySlug(context.Background(), catalog.KindCategory, "hanh-dong")
	require.NoError(t, err)
	_, err = entities.FindBySlug(context.Background(), catalog.KindCategory, "kinh-di")
	require.NoError(t, err)
}
