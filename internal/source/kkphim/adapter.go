// Package kkphim adapts the KKPhim upstream API to the source contract.
// The listing and detail shapes are close to Ophim's but the modification
// stamp is a plain datetime and credits carry no rating-site ids.
package kkphim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/source"
)

// SourceName identifies this adapter.
const SourceName = "kkphim"

// Adapter implements source.Adapter for the KKPhim catalog API.
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
	Status bool `json:"status"`
	Items  []struct {
		Name         string `json:"name"`
		Slug         string `json:"slug"`
		ModifiedTime string `json:"modified_time"`
	} `json:"items"`
	Pagination struct {
		CurrentPage int `json:"currentPage"`
		TotalPages  int `json:"totalPages"`
	} `json:"pagination"`
}

// ListPage fetches one page of the newest-updates listing.
func (a *Adapter) ListPage(ctx context.Context, page int) (source.Page, error) {
	url := a.host + "/danh-sach/phim-moi-cap-nhat?page=" + strconv.Itoa(page)
	var resp listResponse
	if err := a.client.GetJSON(ctx, url, &resp); err != nil {
		return source.Page{}, err
	}
	if !resp.Status {
		return source.Page{}, fmt.Errorf("kkphim listing page %d reported failure", page)
	}
	out := source.Page{TotalPages: resp.Pagination.TotalPages}
	for _, item := range resp.Items {
		out.Items = append(out.Items, catalog.ListItem{
			Name:       item.Name,
			Slug:       item.Slug,
			ModifiedAt: source.ParseModified(item.ModifiedTime),
		})
	}
	return out, nil
}

type taxonomyPayload struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type detailResponse struct {
	Status bool `json:"status"`
	Movie  struct {
		ID           string            `json:"_id"`
		Name         string            `json:"name"`
		Slug         string            `json:"slug"`
		OriginName   string            `json:"origin_name"`
		Content      string            `json:"content"`
		Type         string            `json:"type"`
		Status       string            `json:"status"`
		PosterURL    string            `json:"poster_url"`
		ThumbURL     string            `json:"thumb_url"`
		Trailer      string            `json:"trailer_url"`
		Time         string            `json:"time"`
		EpCurrent    string            `json:"episode_current"`
		EpTotal      string            `json:"episode_total"`
		Quality      string            `json:"quality"`
		Lang         string            `json:"lang"`
		Year         int               `json:"year"`
		View         int64             `json:"view"`
		ModifiedTime string            `json:"modified_time"`
		Actor        []string          `json:"actor"`
		Director     []string          `json:"director"`
		Category     []taxonomyPayload `json:"category"`
		Country      []taxonomyPayload `json:"country"`
		TMDB         struct {
			Type        string  `json:"type"`
			ID          string  `json:"id"`
			Season      int     `json:"season"`
			VoteAverage float64 `json:"vote_average"`
			VoteCount   int     `json:"vote_count"`
		} `json:"tmdb"`
		IMDB struct {
			ID string `json:"id"`
		} `json:"imdb"`
	} `json:"movie"`
	Episodes []struct {
		ServerName string `json:"server_name"`
		ServerData []struct {
			Name      string `json:"name"`
			Slug      string `json:"slug"`
			Filename  string `json:"filename"`
			LinkEmbed string `json:"link_embed"`
			LinkM3u8  string `json:"link_m3u8"`
		} `json:"server_data"`
	} `json:"episodes"`
}

// MovieDetail fetches and normalizes one title.
func (a *Adapter) MovieDetail(ctx context.Context, slug string) (*catalog.RawMovie, error) {
	url := a.host + "/phim/" + slug
	var resp detailResponse
	if err := a.client.GetJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("kkphim detail %q reported failure", slug)
	}

	mv := resp.Movie
	raw := &catalog.RawMovie{
		SourceName:     SourceName,
		SourceID:       mv.ID,
		Name:           mv.Name,
		Slug:           mv.Slug,
		OriginName:     mv.OriginName,
		Content:        mv.Content,
		Type:           mv.Type,
		Status:         mv.Status,
		PosterURL:      source.AbsoluteImage(a.imageHost, mv.PosterURL),
		ThumbURL:       source.AbsoluteImage(a.imageHost, mv.ThumbURL),
		Trailer:        mv.Trailer,
		Duration:       mv.Time,
		EpisodeCurrent: mv.EpCurrent,
		EpisodeTotal:   mv.EpTotal,
		Quality:        mv.Quality,
		Lang:           mv.Lang,
		Year:           mv.Year,
		View:           mv.View,
		ActorNames:     mv.Actor,
		DirectorNames:  mv.Director,
		ModifiedAt:     source.ParseModified(mv.ModifiedTime),
	}
	raw.TMDB = catalog.TMDBInfo{
		Type:        mv.TMDB.Type,
		ID:          mv.TMDB.ID,
		Season:      mv.TMDB.Season,
		VoteAverage: mv.TMDB.VoteAverage,
		VoteCount:   mv.TMDB.VoteCount,
	}
	raw.IMDB = catalog.IMDBInfo{ID: mv.IMDB.ID}

	for _, c := range mv.Category {
		raw.Categories = append(raw.Categories, catalog.RawTaxonomy{Name: c.Name, Slug: c.Slug})
	}
	for _, c := range mv.Country {
		raw.Regions = append(raw.Regions, catalog.RawTaxonomy{Name: c.Name, Slug: c.Slug})
	}
	for _, ep := range resp.Episodes {
		group := catalog.Episode{OriginSrc: SourceName, ServerName: ep.ServerName}
		for _, sd := range ep.ServerData {
			group.ServerData = append(group.ServerData, catalog.EpisodeServerData{
				Name:      sd.Name,
				Slug:      sd.Slug,
				Filename:  sd.Filename,
				LinkEmbed: sd.LinkEmbed,
				LinkM3u8:  sd.LinkM3u8,
			})
		}
		raw.Episodes = append(raw.Episodes, group)
	}
	return raw, nil
}
