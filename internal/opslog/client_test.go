package opslog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"spielebasar/internal/config"
)

func TestCreateLogLogsInOnce(t *testing.T) {
	var logins, logs atomic.Int32
	var last Entry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			logins.Add(1)
			_, _ = w.Write([]byte(`{"token":"tok","expires_at":"2099-01-01T00:00:00Z"}`))
		case "/api/v1/logs":
			logs.Add(1)
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&last)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := FromConfig(config.OpsConfig{BaseURL: srv.URL + "/", APIKey: "key"}, nil)
	require.NotNil(t, c)
	ctx := context.Background()
	require.NoError(t, c.CreateLog(ctx, Entry{Action: "sync_run", Level: "info"}))
	c.Notify(ctx, "sync_run", "warn", map[string]any{"horizon": "all"})

	require.EqualValues(t, 1, logins.Load())
	require.EqualValues(t, 2, logs.Load())
	require.Equal(t, DefaultAgent, last.Agent)
	require.Equal(t, "warn", last.Level)
	require.Equal(t, "all", last.Details["horizon"])
}

func TestLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	err := c.CreateLog(context.Background(), Entry{Action: "x"})
	require.ErrorContains(t, err, "http 403")
}

func TestNilClient(t *testing.T) {
	require.Nil(t, FromConfig(config.OpsConfig{}, nil))
	var c *Client
	c.Notify(context.Background(), "x", "info", nil)
	require.Nil(t, FromContext(WithClient(context.Background(), nil)))
	require.Equal(t, "error", LevelFromStatus(502))
	require.Equal(t, "warn", LevelFromStatus(409))
	require.Equal(t, "info", LevelFromStatus(200))
}
