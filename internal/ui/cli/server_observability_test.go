package cli

import (
	"context"
	coreapp "depgrapher/internal/core/app"
	"depgrapher/internal/core/config"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerApp(t *testing.T) (*coreapp.App, string) {
	t.Helper()
	dir, root, _ := setupProject(t)
	cfg := config.Default()
	cfg.Registry.Offline = true
	paths, err := config.ResolvePaths(cfg, dir)
	require.NoError(t, err)
	application, err := coreapp.New(cfg, paths,
		coreapp.WithWorkDir(dir),
		coreapp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return application, root
}

func TestObservabilityServer_HealthFollowsLastRun(t *testing.T) {
	application, root := newServerApp(t)
	srv := NewObservabilityServer("127.0.0.1:0", coreapp.NewHealthService(application))
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := application.Run(context.Background(), coreapp.Request{Files: []string{root}})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status coreapp.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "offline", status.Components["fetcher"])
	assert.Contains(t, status.Components["last_run"], "ok (5 modules")
}

func TestObservabilityServer_ServesMetrics(t *testing.T) {
	application, _ := newServerApp(t)
	srv := NewObservabilityServer("127.0.0.1:0", coreapp.NewHealthService(application))
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "depgrapher_graph_nodes")
}

func TestObservabilityServer_StartFailsOnBusyAddress(t *testing.T) {
	application, _ := newServerApp(t)
	first := NewObservabilityServer("127.0.0.1:0", coreapp.NewHealthService(application))
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := NewObservabilityServer(first.Addr(), coreapp.NewHealthService(application))
	assert.Error(t, second.Start(context.Background()))
}
