// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ikusare/internal/api"
	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/platform/constants"
	"github.com/taibuivan/ikusare/internal/platform/middleware"
	"github.com/taibuivan/ikusare/internal/platform/sec"
	"github.com/taibuivan/ikusare/internal/provider"
)

type staticVerifier map[string]*sec.AuthClaims

func (verifier staticVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if claims, ok := verifier[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

func newTestServer(t *testing.T, verifier staticVerifier, deps api.HealthDependencies) (*api.Server, *httptest.Server) {
	t.Helper()
	cfg, err := config.LoadFromMap(map[string]string{"SYNC_RUN_TIMEOUT": "2m"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := catalog.NewEngine(catalog.NewMemoryRepository())
	orchestrator := catalogsync.NewOrchestrator(nil, &provider.Registry{}, engine,
		catalogsync.NewMemoryMetaRepository(nil), catalogsync.WithLogger(logger))

	liveness, readiness := api.NewHealthHandlers(deps, logger)
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Catalog:   catalog.NewHandler(engine),
		Sync:      catalogsync.NewHandler(orchestrator, cfg.Sync.RunTimeout),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var tokenVerifier middleware.TokenVerifier
	if verifier != nil {
		tokenVerifier = verifier
	}
	server := api.NewServer(ctx, cfg, logger, tokenVerifier, handlers)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)
	return server, httpServer
}

func do(t *testing.T, method, url, token string) int {
	t.Helper()
	request, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()
	return response.StatusCode
}

/*
TestServer_WriteTimeoutCoversRunBudget derives the write timeout from the sync
run budget.
*/
func TestServer_WriteTimeoutCoversRunBudget(t *testing.T) {
	server, _ := newTestServer(t, nil, api.HealthDependencies{})
	assert.Equal(t, 2*time.Minute+constants.WriteTimeoutMargin, server.WriteTimeout())
}

/*
TestServer_Routes checks the probes, the catalogue API and an open sync trigger.
*/
func TestServer_Routes(t *testing.T) {
	_, httpServer := newTestServer(t, nil, api.HealthDependencies{})

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, httpServer.URL+"/health", ""))
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, httpServer.URL+"/ready", ""))
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, httpServer.URL+"/api/v1/catalog", ""))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, httpServer.URL+"/api/v1/catalog/missing", ""))
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, httpServer.URL+"/sync/all", ""))
}

/*
TestServer_SyncRequiresOperator guards the triggers once a verifier is configured.
*/
func TestServer_SyncRequiresOperator(t *testing.T) {
	verifier := staticVerifier{
		"operator": {Operator: "ane", Role: string(sec.RoleOperator)},
		"viewer":   {Operator: "jon", Role: string(sec.RoleViewer)},
	}
	_, httpServer := newTestServer(t, verifier, api.HealthDependencies{})

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, httpServer.URL+"/sync/all", ""))
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, httpServer.URL+"/sync/all", "forged"))
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, httpServer.URL+"/sync/all", "viewer"))
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, httpServer.URL+"/sync/all", "operator"))

	// The read API stays public.
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, httpServer.URL+"/api/v1/catalog", ""))
}

/*
TestServer_ReadinessDegraded answers 503 when a dependency check fails.
*/
func TestServer_ReadinessDegraded(t *testing.T) {
	_, httpServer := newTestServer(t, nil, api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("redis down") },
	})

	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, httpServer.URL+"/ready", ""))
}
