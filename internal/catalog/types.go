// Package catalog defines the canonical movie data model shared across
// subsystems, plus the narrow store interfaces the crawler consumes.
package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EpisodeServerData is one playable link within a server group.
type EpisodeServerData struct {
	Name      string `bson:"name" json:"name"`
	Slug      string `bson:"slug" json:"slug"`
	Filename  string `bson:"filename" json:"filename"`
	LinkEmbed string `bson:"link_embed" json:"link_embed"`
	LinkM3u8  string `bson:"link_m3u8" json:"link_m3u8"`
}

// Episode is one (origin source, server name) bundle of playable entries.
// Within a group, ServerData slugs are unique.
type Episode struct {
	OriginSrc  string              `bson:"origin_src" json:"origin_src"`
	ServerName string              `bson:"server_name" json:"server_name"`
	ServerData []EpisodeServerData `bson:"server_data" json:"server_data"`
}

// TMDBInfo carries the rating-site identity of a title. Type distinguishes
// movie from tv so the same numeric id in both namespaces cannot collide.
type TMDBInfo struct {
	Type        string  `bson:"type" json:"type"`
	ID          string  `bson:"id" json:"id"`
	Season      int     `bson:"season,omitempty" json:"season,omitempty"`
	VoteAverage float64 `bson:"vote_average" json:"vote_average"`
	VoteCount   int     `bson:"vote_count" json:"vote_count"`
}

// IMDBInfo carries the external-database identity of a title.
type IMDBInfo struct {
	ID string `bson:"id" json:"id"`
}

// Movie is the canonical record aggregating data from every source.
// LastSyncModified holds one timestamp per contributing source so freshness
// checks stay independent across sources.
type Movie struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Slug           string             `bson:"slug" json:"slug"`
	OriginName     string             `bson:"origin_name" json:"origin_name"`
	Content        string             `bson:"content" json:"content"`
	Type           string             `bson:"type" json:"type"`
	Status         string             `bson:"status" json:"status"`
	PosterURL      string             `bson:"poster_url" json:"poster_url"`
	ThumbURL       string             `bson:"thumb_url" json:"thumb_url"`
	Trailer        string             `bson:"trailer_url" json:"trailer_url"`
	Duration       string             `bson:"time" json:"time"`
	EpisodeCurrent string             `bson:"episode_current" json:"episode_current"`
	EpisodeTotal   string             `bson:"episode_total" json:"episode_total"`
	Quality        string             `bson:"quality" json:"quality"`
	Lang           string             `bson:"lang" json:"lang"`
	Notify         string             `bson:"notify" json:"notify"`
	Showtimes      string             `bson:"showtimes" json:"showtimes"`
	Year           int                `bson:"year" json:"year"`
	View           int64              `bson:"view" json:"view"`

	TMDB TMDBInfo `bson:"tmdb" json:"tmdb"`
	IMDB IMDBInfo `bson:"imdb" json:"imdb"`

	Actors     []primitive.ObjectID `bson:"actors" json:"actors"`
	Directors  []primitive.ObjectID `bson:"directors" json:"directors"`
	Categories []primitive.ObjectID `bson:"categories" json:"categories"`
	Regions    []primitive.ObjectID `bson:"regions" json:"regions"`

	Episodes []Episode `bson:"episodes" json:"episodes"`

	LastSyncModified map[string]int64 `bson:"last_sync_modified" json:"last_sync_modified"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SyncModified returns the recorded modification timestamp for source, or 0
// when the source has never contributed to this record.
func (m *Movie) SyncModified(source string) int64 {
	if m.LastSyncModified == nil {
		return 0
	}
	return m.LastSyncModified[source]
}

// SetSyncModified records the modification timestamp for source.
func (m *Movie) SetSyncModified(source string, ts int64) {
	if m.LastSyncModified == nil {
		m.LastSyncModified = make(map[string]int64, 1)
	}
	m.LastSyncModified[source] = ts
}
