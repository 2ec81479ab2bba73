package ophim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/source"
)

const listPayload = `{
  "status": true,
  "items": [
    {"name": "Mắt Biếc", "slug": "mat-biec", "modified": {"time": "2025-01-01T00:00:00.000Z"}},
    {"name": "Bố Già", "slug": "bo-gia", "modified": {"time": "2025-01-02T00:00:00.000Z"}}
  ],
  "pagination": {"totalItems": 120, "totalItemsPerPage": 24, "currentPage": 1, "totalPages": 5}
}`

const detailPayload = `{
  "status": true,
  "movie": {
    "_id": "65f2a1b3c4d5e6f7a8b9c0d1",
    "name": "Mắt Biếc",
    "slug": "mat-biec",
    "origin_name": "Dreamy Eyes",
    "content": "<p>A story.</p>",
    "type": "single",
    "status": "completed",
    "poster_url": "/uploads/movies/mat-biec-poster.jpg",
    "thumb_url": "https://cdn.other/mat-biec-thumb.jpg",
    "time": "117 phút",
    "episode_current": "Full",
    "episode_total": "1",
    "quality": "FHD",
    "lang": "Vietsub",
    "year": 2019,
    "view": 12345,
    "modified": {"time": "2025-01-01T00:00:00.000Z"},
    "actor": ["Trần Nghĩa"],
    "director": ["Victor Vũ"],
    "category": [{"name": "Tình Cảm", "slug": "tinh-cam"}],
    "country": [{"name": "Việt Nam", "slug": "viet-nam"}],
    "tmdb": {"type": "movie", "id": "619264", "vote_average": 8.1, "vote_count": 40},
    "imdb": {"id": "tt9690916"},
    "peoples": [
      {"tmdb_people_id": 1662923, "name": "Trần Nghĩa", "known_for_department": "Acting"},
      {"tmdb_people_id": 1023853, "name": "Victor Vũ", "known_for_department": "Directing"},
      {"tmdb_people_id": 0, "name": "Unknown", "known_for_department": "Acting"}
    ]
  },
  "episodes": [
    {"server_name": "Vietsub #1", "server_data": [
      {"name": "Full", "slug": "full", "filename": "mat-biec", "link_embed": "https://p.example/e/1", "link_m3u8": "https://p.example/m/1.m3u8"}
    ]}
  ]
}`

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "https://img.ophim.example", source.NewClient(5*time.Second, "test"))
}

func TestListPage(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/danh-sach/phim-moi-cap-nhat", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(listPayload))
	}))

	page, err := a.ListPage(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 5, page.TotalPages)
	require.Len(t, page.Items, 2)
	require.Equal(t, "mat-biec", page.Items[0].Slug)
	require.EqualValues(t, 1735689600, page.Items[0].ModifiedAt)
}

func TestListPageReportedFailure(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": false}`))
	}))

	_, err := a.ListPage(context.Background(), 1)
	require.Error(t, err)
}

func TestMovieDetail(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/phim/mat-biec", r.URL.Path)
		w.Write([]byte(detailPayload))
	}))

	raw, err := a.MovieDetail(context.Background(), "mat-biec")
	require.NoError(t, err)
	require.Equal(t, SourceName, raw.SourceName)
	require.Equal(t, "mat-biec", raw.Slug)
	require.Equal(t, "Dreamy Eyes", raw.OriginName)
	require.Equal(t, 2019, raw.Year)
	require.EqualValues(t, 12345, raw.View)
	require.EqualValues(t, 1735689600, raw.ModifiedAt)

	// Relative poster paths move onto the image host; absolute ones stay.
	require.Equal(t, "https://img.ophim.example/uploads/movies/mat-biec-poster.jpg", raw.PosterURL)
	require.Equal(t, "https://cdn.other/mat-biec-thumb.jpg", raw.ThumbURL)

	require.Equal(t, "619264", raw.TMDB.ID)
	require.Equal(t, "tt9690916", raw.IMDB.ID)

	require.Len(t, raw.Credits, 2, "credits without a people id are dropped")
	require.Equal(t, catalog.RawPerson{ExternalID: "1662923", Name: "Trần Nghĩa", Role: catalog.RoleActor}, raw.Credits[0])
	require.Equal(t, catalog.RoleDirector, raw.Credits[1].Role)

	require.Equal(t, []catalog.RawTaxonomy{{Name: "Tình Cảm", Slug: "tinh-cam"}}, raw.Categories)
	require.Equal(t, []catalog.RawTaxonomy{{Name: "Việt Nam", Slug: "viet-nam"}}, raw.Regions)

	require.Len(t, raw.Episodes, 1)
	require.Equal(t, SourceName, raw.Episodes[0].OriginSrc)
	require.Equal(t, "Vietsub #1", raw.Episodes[0].ServerName)
	require.Equal(t, "full", raw.Episodes[0].ServerData[0].Slug)
}

func TestShouldEnable(t *testing.T) {
	require.True(t, New("https://ophim.example", "", nil).ShouldEnable())
	require.False(t, New("", "", nil).ShouldEnable())
}
