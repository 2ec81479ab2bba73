package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cinefeed-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"status":true,"msg":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "cinefeed-test")
	var out struct {
		Status bool   `json:"status"`
		Msg    string `json:"msg"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	require.True(t, out.Status)
	require.Equal(t, "ok", out.Msg)
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, "")
	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, &out)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestAbsoluteImage(t *testing.T) {
	require.Equal(t, "https://img.example/uploads/p.jpg", AbsoluteImage("https://img.example", "/uploads/p.jpg"))
	require.Equal(t, "https://img.example/uploads/p.jpg", AbsoluteImage("https://img.example/", "uploads/p.jpg"))
	require.Equal(t, "https://cdn.other/p.jpg", AbsoluteImage("https://img.example", "https://cdn.other/p.jpg"))
	require.Equal(t, "", AbsoluteImage("https://img.example", ""))
}

func TestParseModified(t *testing.T) {
	require.EqualValues(t, 1735689600, ParseModified("2025-01-01T00:00:00.000Z"))
	require.EqualValues(t, 1735689600, ParseModified("2025-01-01T00:00:00Z"))
	require.EqualValues(t, 1735689600, ParseModified("2025-01-01 00:00:00"))
	require.Zero(t, ParseModified(""))
	require.Zero(t, ParseModified("yesterday"))
}
