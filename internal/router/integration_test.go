//go:build integration

package router

// Runs the HTTP surface against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storekeep/internal/backup"
	"storekeep/internal/config"
	"storekeep/internal/dto"
	"storekeep/internal/infra"
	"storekeep/internal/monitor"
	"storekeep/internal/service"
	"storekeep/internal/session"
	"storekeep/internal/storage"
	"storekeep/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Suite Setup ──────────────────────────────────────────────────────────────

type liveEnv struct {
	server *httptest.Server
	svcs   *Services
}

func setupLiveEnv(t *testing.T) *liveEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("storekeep_test"),
		tcPostgres.WithUsername("storekeep"),
		tcPostgres.WithPassword("storekeep"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:             "test",
		DatabaseURL:     pgURL,
		RedisURL:        rdURL,
		WorkerPoolSize:  1,
		SessionCookie:   "storekeep_session",
		PublicDir:       t.TempDir(),
		BackupDir:       t.TempDir(),
		CORSOrigins:     "*",
		MaxUploadSizeMB: 5,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.Migrate(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	tool := backup.NewPgTool(cfg.BackupDir, cfg.DatabaseURL, cfg.BinPaths(), db)
	dispatcher := worker.NewDispatcher(rdb, worker.NewRedisJobStore(rdb), tool, nil)
	worker.StartWorkerPool(ctx, dispatcher, cfg.WorkerPoolSize)

	deps := Deps{
		DB:       db,
		Redis:    rdb,
		Sessions: session.NewManager(session.NewRedisStore(rdb), "live-secret", time.Hour),
		Files:    storage.NewDiskStore(cfg.PublicDir),
		Backups:  tool,
		Jobs:     dispatcher,
		Monitor:  monitor.New("livetest"),
		Hasher:   service.NewBcryptHasher(bcrypt.MinCost),
	}
	svcs := NewServices(deps)
	_, err = svcs.Accounts.EnsureSuperAdmin(ctx, "root", "rootpw")
	require.NoError(t, err)

	srv := httptest.NewServer(New(ctx, cfg, deps, svcs))
	t.Cleanup(srv.Close)
	return &liveEnv{server: srv, svcs: svcs}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (e *liveEnv) call(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeResp[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *liveEnv) token(t *testing.T, path, username, password string) string {
	t.Helper()
	resp := e.call(t, http.MethodPost, path, "", map[string]string{"username": username, "password": password})
	require.Less(t, resp.StatusCode, 300)
	return decodeResp[dto.SessionResponse](t, resp).Token
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestLive_Health(t *testing.T) {
	e := setupLiveEnv(t)
	resp := e.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"ok": true, "db": "connected", "redis": "connected"}, decodeResp[map[string]any](t, resp))
}

func TestLive_TrashCascadeAndPurge(t *testing.T) {
	e := setupLiveEnv(t)
	root := e.token(t, "/v1/auth/login", "root", "rootpw")
	alice := e.token(t, "/v1/auth/register", "alice", "secret1")

	resp := e.call(t, http.MethodPost, "/v1/products", alice, dto.ProductRequest{Name: "lamp"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.call(t, http.MethodGet, "/v1/admin/users", root, nil)
	var aliceID uint
	for _, u := range decodeResp[[]dto.AdminUserResponse](t, resp) {
		if u.Username == "alice" {
			aliceID = u.ID
			assert.Equal(t, 1, u.ProductCount)
		}
	}
	require.NotZero(t, aliceID)

	resp = e.call(t, http.MethodDelete, fmt.Sprintf("/v1/admin/users/%d", aliceID), root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), decodeResp[dto.TrashUserResponse](t, resp).ProductsTrashed)

	// sessions live in Redis and die with the account
	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodGet, "/v1/auth/me", alice, nil).StatusCode)

	resp = e.call(t, http.MethodGet, "/v1/catalog", "", nil)
	assert.Empty(t, decodeResp[[]dto.ProductResponse](t, resp))

	resp = e.call(t, http.MethodDelete, fmt.Sprintf("/v1/admin/trash/users/%d", aliceID), root, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	purged := decodeResp[dto.PurgeResponse](t, resp)
	assert.Equal(t, int64(1), purged.Users)
	assert.Equal(t, int64(1), purged.Products)

	// the name is free again once purged
	e.token(t, "/v1/auth/register", "alice", "secret1")
}

func TestLive_BackupJobRunsOnWorkerPool(t *testing.T) {
	e := setupLiveEnv(t)
	root := e.token(t, "/v1/auth/login", "root", "rootpw")

	resp := e.call(t, http.MethodPost, "/v1/admin/backups", root, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	job := decodeResp[dto.BackupJobResponse](t, resp)

	var final dto.BackupJobResponse
	require.Eventually(t, func() bool {
		r := e.call(t, http.MethodGet, "/v1/admin/backups/jobs/"+job.ID, root, nil)
		if r.StatusCode != http.StatusOK {
			return false
		}
		final = decodeResp[dto.BackupJobResponse](t, r)
		return final.Status == worker.StatusDone || final.Status == worker.StatusFailed
	}, 60*time.Second, 500*time.Millisecond)

	if final.Status == worker.StatusDone {
		list := decodeResp[[]dto.BackupInfo](t, e.call(t, http.MethodGet, "/v1/admin/backups", root, nil))
		require.Len(t, list, 1)
		assert.Equal(t, final.Filename, list[0].Filename)
		return
	}

	// pg_dump unavailable on this host: the job is dead-lettered
	failed := decodeResp[[]dto.FailedJobResponse](t, e.call(t, http.MethodGet, "/v1/admin/backups/failed", root, nil))
	require.NotEmpty(t, failed)
	assert.Equal(t, worker.QueueBackup, failed[0].Queue)
}
