package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cinefeed/cinefeed/internal/cache"
	"github.com/cinefeed/cinefeed/internal/catalog"
	"github.com/cinefeed/cinefeed/internal/config"
	"github.com/cinefeed/cinefeed/internal/crawl"
	"github.com/cinefeed/cinefeed/internal/merge"
	"github.com/cinefeed/cinefeed/internal/revalidate"
	"github.com/cinefeed/cinefeed/internal/source"
	"github.com/cinefeed/cinefeed/internal/store/memory"
)

type stubAdapter struct{}

func (stubAdapter) Name() string       { return "ophim" }
func (stubAdapter) Host() string       { return "https://ophim.example" }
func (stubAdapter) ShouldEnable() bool { return true }

func (stubAdapter) ListPage(context.Context, int) (source.Page, error) {
	return source.Page{TotalPages: 0}, nil
}

func (stubAdapter) MovieDetail(context.Context, string) (*catalog.RawMovie, error) {
	return nil, catalog.ErrNotFound
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	registry := crawl.NewRegistry()
	engine := merge.New(memory.NewMovieStore(), nil, nil)
	o, err := crawl.New(crawl.Config{
		SourceName:         "ophim",
		Host:               "https://ophim.example",
		CronSchedule:       "0 3 * * *",
		MaxConcurrent:      1,
		MaxContinuousSkips: 10,
		Enabled:            true,
	}, stubAdapter{}, engine, cache.NewMemory(), memory.NewSettingsStore(), revalidate.New("", "", nil), crawl.Enablement{}, nil)
	require.NoError(t, err)
	registry.Add(o)
	return NewServer(registry, cfg, nil)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListSources(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"sources":["ophim"]}`, rec.Body.String())
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/ophim/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st crawl.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, crawl.StateIdle, st.State)
}

func TestUnknownSourceIs404(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/nope/status", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	s := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Healthz and metrics stay open.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerAccepted(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sources/ophim/trigger", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTriggerRejectsBadJSON(t *testing.T) {
	s := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/sources/ophim/trigger", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStop(t *testing.T) {
	s := newTestServer(t, config.Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sources/ophim/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"source":"ophim","status":"stopping"}`, rec.Body.String())
}

func TestUpdateConfig(t *testing.T) {
	s := newTestServer(t, config.Config{})

	body := `{
		"host": "https://ophim.example",
		"cron_schedule": "0 4 * * *",
		"max_retries": 3,
		"rate_limit_delay_ms": 500,
		"max_concurrent": 5,
		"max_continuous_skips": 50,
		"enabled": true
	}`
	req := httptest.NewRequest(http.MethodPut, "/v1/sources/ophim/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sources/ophim/config", nil))
	var settings catalog.SourceSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	require.Equal(t, 5, settings.MaxConcurrent)
	require.Equal(t, "0 4 * * *", settings.CronSchedule)
	require.Equal(t, 500, settings.RateLimitDelayMs)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	s := newTestServer(t, config.Config{})

	req := httptest.NewRequest(http.MethodPut, "/v1/sources/ophim/config",
		strings.NewReader(`{"host": "", "cron_schedule": "0 4 * * *", "max_concurrent": 5, "max_continuous_skips": 50}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
