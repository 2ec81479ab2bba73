package catalog

// RawPersonRole distinguishes credit kinds on a raw record.
type RawPersonRole string

// Credit roles produced by source adapters.
const (
	RoleActor    RawPersonRole = "actor"
	RoleDirector RawPersonRole = "director"
)

// RawPerson is one rating-site credit attached to a raw record.
type RawPerson struct {
	ExternalID string
	Name       string
	Role       RawPersonRole
}

// RawTaxonomy is a category or region reference as a source reports it.
type RawTaxonomy struct {
	Name string
	Slug string
}

// RawMovie is the source-neutral shape every adapter normalizes a detail
// response into. ModifiedAt is the source's own last-modified clock in unix
// seconds and drives the per-source freshness gate.
type RawMovie struct {
	SourceName     string
	SourceID       string
	Name           string
	Slug           string
	OriginName     string
	Content        string
	Type           string
	Status         string
	PosterURL      string
	ThumbURL       string
	Trailer        string
	Duration       string
	EpisodeCurrent string
	EpisodeTotal   string
	Quality        string
	Lang           string
	Notify         string
	Showtimes      string
	Year           int
	View           int64

	TMDB TMDBInfo
	IMDB IMDBInfo

	Credits       []RawPerson
	ActorNames    []string
	DirectorNames []string

	Categories []RawTaxonomy
	Regions    []RawTaxonomy

	Episodes []Episode

	ModifiedAt int64
}

// ListItem is one entry of a paginated source listing.
type ListItem struct {
	Name       string
	Slug       string
	ModifiedAt int64
}
