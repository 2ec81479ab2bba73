package nguonc

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
  "status": "success",
  "items": [
    {"name": "Đào, Phở Và Piano", "slug": "dao-pho-va-piano", "modified": "2025-01-01T00:00:00.000Z"}
  ],
  "paginate": {"current_page": 1, "total_page": 8}
}`

const detailPayload = `{
  "status": "success",
  "movie": {
    "id": "f81b1ad1",
    "name": "Đào, Phở Và Piano",
    "slug": "dao-pho-va-piano",
    "original_name": "Peach Blossom, Pho and Piano",
    "description": "Hà Nội mùa đông năm 1946.",
    "poster_url": "https://img.nguonc.example/posters/dao-pho.jpg",
    "thumb_url": "/thumbs/dao-pho.jpg",
    "time": "100 phút",
    "current_episode": "Full",
    "total_episodes": "1",
    "quality": "FHD",
    "language": "Vietsub",
    "casts": "Doãn Quốc Đam, Cao Thị Thùy Linh, ",
    "director": "Phi Tiến Sơn",
    "modified": "2025-01-01T00:00:00.000Z",
    "category": {
      "1": {"group": {"name": "Định dạng"}, "list": [{"name": "Phim lẻ"}]},
      "2": {"group": {"name": "Thể loại"}, "list": [{"name": "Chính kịch"}, {"name": "Lịch sử"}]},
      "3": {"group": {"name": "Quốc gia"}, "list": [{"name": "Việt Nam"}]},
      "4": {"group": {"name": "Năm"}, "list": [{"name": "2024"}]}
    }
  },
  "episodes": [
    {"server_name": "Vietsub #1", "items": [
      {"name": "Full", "slug": "full", "embed": "https://n.example/e/1", "m3u8": "https://n.example/m/1.m3u8"}
    ]}
  ]
}`

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "https://img.nguonc.example", source.NewClient(5*time.Second, "test"))
}

func TestListPage(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/films/phim-moi-cap-nhat", r.URL.Path)
		w.Write([]byte(listPayload))
	}))

	page, err := a.ListPage(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 8, page.TotalPages)
	require.Len(t, page.Items, 1)
}

func TestListPageRejectsNonSuccessStatus(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "error"}`))
	}))

	_, err := a.ListPage(context.Background(), 1)
	require.Error(t, err)
}

func TestMovieDetail(t *testing.T) {
	a := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/film/dao-pho-va-piano", r.URL.Path)
		w.Write([]byte(detailPayload))
	}))

	raw, err := a.MovieDetail(context.Background(), "dao-pho-va-piano")
	require.NoError(t, err)
	require.Equal(t, SourceName, raw.SourceName)
	require.Equal(t, "Peach Blossom, Pho and Piano", raw.OriginName)

	// Numbered taxonomy groups unpack by their Vietnamese labels.
	require.Equal(t, 2024, raw.Year)
	require.Equal(t, "Phim lẻ", raw.Type)
	require.ElementsMatch(t, []catalog.RawTaxonomy{{Name: "Chính kịch"}, {Name: "Lịch sử"}}, raw.Categories)
	require.Equal(t, []catalog.RawTaxonomy{{Name: "Việt Nam"}}, raw.Regions)

	// Comma-joined credit strings split into trimmed names.
	require.Equal(t, []string{"Doãn Quốc Đam", "Cao Thị Thùy Linh"}, raw.ActorNames)
	require.Equal(t, []string{"Phi Tiến Sơn"}, raw.DirectorNames)

	require.Equal(t, "https://img.nguonc.example/posters/dao-pho.jpg", raw.PosterURL)
	require.Equal(t, "https://img.nguonc.example/thumbs/dao-pho.jpg", raw.ThumbURL)

	require.Len(t, raw.Episodes, 1)
	require.Equal(t, SourceName, raw.Episodes[0].OriginSrc)
	require.Equal(t, "https://n.example/m/1.m3u8", raw.Episodes[0].ServerData[0].LinkM3u8)
}

func TestSplitNames(t *testing.T) {
	require.Equal(t, []string{"A", "B"}, splitNames("A, B"))
	require.Nil(t, splitNames(""))
	require.Nil(t, splitNames(" , ,"))
}
