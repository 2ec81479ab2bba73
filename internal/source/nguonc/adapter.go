// Package nguonc adapts the NguonC upstream API to the source contract.
// Its detail shape diverges from the other sources: taxonomy arrives as
// numbered groups, credits are comma-joined strings, and episode entries
// use embed/m3u8 keys.
package nguonc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/source"
)

// SourceName identifies this adapter.
const SourceName = "nguonc"

// Taxonomy group labels used by the upstream.
const (
	groupCategory = "Thể loại"
	groupRegion   = "Quốc gia"
	groupYear     = "Năm"
	groupFormat   = "Định dạng"
)

// Adapter implements source.Adapter for the NguonC film API.
type Adapter struct {
	host      string
	imageHost string
	client    *source.Client
}

// New builds an Adapter for the given host.
func New(host, imageHost string, client *source.Client) *Adapter {
	if imageHost == "" {
		imageHost = host
	}
	return &Adapter{host: host, imageHost: imageHost, client: client}
}

// Name returns the adapter's source name.
func (a *Adapter) Name() string { return SourceName }

// Host returns the configured upstream base URL.
func (a *Adapter) Host() string { return a.host }

// ShouldEnable refuses to run without a configured host.
func (a *Adapter) ShouldEnable() bool { return a.host != "" }

type listResponse struct {
	Status string `json:"status"`
	Items  []struct {
		Name     string `json:"name"`
		Slug     string `json:"slug"`
		Modified string `json:"modified"`
	} `json:"items"`
	Paginate struct {
		CurrentPage int `json:"current_page"`
		TotalPage   int `json:"total_page"`
	} `json:"paginate"`
}

// ListPage fetches one page of the newest-updates listing.
func (a *Adapter) ListPage(ctx context.Context, page int) (source.Page, error) {
	url := a.host + "/api/films/phim-moi-cap-nhat?page=" + strconv.Itoa(page)
	var resp listResponse
	if err := a.client.GetJSON(ctx, url, &resp); err != nil {
		return source.Page{}, err
	}
	if resp.Status != "success" {
		return source.Page{}, fmt.Errorf("nguonc listing page %d returned status %q", page, resp.Status)
	}
	out := source.Page{TotalPages: resp.Paginate.TotalPage}
	for _, item := range resp.Items {
		out.Items = append(out.Items, catalog.ListItem{
			Name:       item.Name,
			Slug:       item.Slug,
			ModifiedAt: source.ParseModified(item.Modified),
		})
	}
	return out, nil
}

type taxonomyGroup struct {
	Group struct {
		Name string `json:"name"`
	} `json:"group"`
	List []struct {
		Name string `json:"name"`
	} `json:"list"`
}

type detailResponse struct {
	Status string `json:"status"`
	Movie  struct {
		ID          string                   `json:"id"`
		Name        string                   `json:"name"`
		Slug        string                   `json:"slug"`
		OriginName  string                   `json:"original_name"`
		Description string                   `json:"description"`
		PosterURL   string                   `json:"poster_url"`
		ThumbURL    string                   `json:"thumb_url"`
		Time        string                   `json:"time"`
		EpCurrent   string                   `json:"current_episode"`
		EpTotal     string                   `json:"total_episodes"`
		Quality     string                   `json:"quality"`
		Language    string                   `json:"language"`
		Casts       string                   `json:"casts"`
		Director    string                   `json:"director"`
		Modified    string                   `json:"modified"`
		Category    map[string]taxonomyGroup `json:"category"`
	} `json:"movie"`
	Episodes []struct {
		ServerName string `json:"server_name"`
		Items      []struct {
			Name  string `json:"name"`
			Slug  string `json:"slug"`
			Embed string `json:"embed"`
			M3u8  string `json:"m3u8"`
		} `json:"items"`
	} `json:"episodes"`
}

func splitNames(joined string) []string {
	var out []string
	for _, part := range strings.Split(joined, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// MovieDetail fetches and normalizes one title.
func (a *Adapter) MovieDetail(ctx context.Context, slug string) (*catalog.RawMovie, error) {
	url := a.host + "/api/film/" + slug
	var resp detailResponse
	if err := a.client.GetJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("nguonc detail %q returned status %q", slug, resp.Status)
	}

	mv := resp.Movie
	raw := &catalog.RawMovie{
		SourceName:     SourceName,
		SourceID:       mv.ID,
		Name:           mv.Name,
		Slug:           mv.Slug,
		OriginName:     mv.OriginName,
		Content:        mv.Description,
		PosterURL:      source.AbsoluteImage(a.imageHost, mv.PosterURL),
		ThumbURL:       source.AbsoluteImage(a.imageHost, mv.ThumbURL),
		Duration:       mv.Time,
		EpisodeCurrent: mv.EpCurrent,
		EpisodeTotal:   mv.EpTotal,
		Quality:        mv.Quality,
		Lang:           mv.Language,
		ActorNames:     splitNames(mv.Casts),
		DirectorNames:  splitNames(mv.Director),
		ModifiedAt:     source.ParseModified(mv.Modified),
	}

	for _, group := range mv.Category {
		switch group.Group.Name {
		case groupCategory:
			for _, item := range group.List {
				raw.Categories = append(raw.Categories, catalog.RawTaxonomy{Name: item.Name})
			}
		case groupRegion:
			for _, item := range group.List {
				raw.Regions = append(raw.Regions, catalog.RawTaxonomy{Name: item.Name})
			}
		case groupYear:
			for _, item := range group.List {
				if year, err := strconv.Atoi(item.Name); err == nil {
					raw.Year = year
				}
			}
		case groupFormat:
			for _, item := range group.List {
				raw.Type = item.Name
			}
		}
	}

	for _, ep := range resp.Episodes {
		group := catalog.Episode{OriginSrc: SourceName, ServerName: ep.ServerName}
		for _, item := range ep.Items {
			group.ServerData = append(group.ServerData, catalog.EpisodeServerData{
				Name:      item.Name,
				Slug:      item.Slug,
				LinkEmbed: item.Embed,
				LinkM3u8:  item.M3u8,
			})
		}
		raw.Episodes = append(raw.Episodes, group)
	}
	return raw, nil
}
