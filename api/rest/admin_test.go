package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/api/rest"
	"github.com/theseus-bot/theseus/audit"
	"github.com/theseus-bot/theseus/scheduler"
	"github.com/theseus-bot/theseus/store"
	"github.com/theseus-bot/theseus/testutil"
	"go.uber.org/zap"
)

const adminKey = "test-key"

type env struct {
	r     *gin.Engine
	store store.Store
	sched *scheduler.Scheduler
}

func newEnv(t *testing.T, key string, withAudit bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	st := testutil.SetupTestStore(t)
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	var reader rest.AuditReader
	if withAudit {
		svc := audit.New(db, zap.NewNop())
		svc.Log(audit.Entry{TraceID: "t1", GuildID: 7, Command: "tag join"})
		svc.Log(audit.Entry{TraceID: "t2", GuildID: 7, Command: "tag leave"})
		svc.Stop(context.Background())
		reader = svc
	}

	r := gin.New()
	rest.Routes(r, key,
		rest.NewHealthHandler(st, sched),
		rest.NewAdminHandler(st, sched, reader, zap.NewNop()))
	return &env{r: r, store: st, sched: sched}
}

func get(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set(rest.AdminKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAdminAuth(t *testing.T) {
	e := newEnv(t, adminKey, false)
	assert.Equal(t, http.StatusUnauthorized, get(e.r, "/api/admin/scheduler", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e.r, "/api/admin/scheduler", "wrong").Code)
	assert.Equal(t, http.StatusOK, get(e.r, "/api/admin/scheduler", adminKey).Code)
}

func TestAdminAuth_DisabledWithoutKey(t *testing.T) {
	e := newEnv(t, "", false)
	assert.Equal(t, http.StatusServiceUnavailable, get(e.r, "/api/admin/scheduler", "anything").Code)
	assert.Equal(t, http.StatusOK, get(e.r, "/health", "").Code, "health needs no key")
}

func TestAdmin_TagEndpoints(t *testing.T) {
	e := newEnv(t, adminKey, false)
	ctx := context.Background()
	_, err := e.store.JoinTag(ctx, 7, "raiders", 100)
	require.NoError(t, err)
	_, err = e.store.JoinTag(ctx, 7, "raiders", 200)
	require.NoError(t, err)
	_, err = e.store.JoinTag(ctx, 7, "crafters", 100)
	require.NoError(t, err)

	w := get(e.r, "/api/admin/guilds/7/tags", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"raiders": 2.0, "crafters": 1.0}, decode(t, w)["tags"])

	w = get(e.r, "/api/admin/guilds/7/tags/Raiders/members", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "raiders", body["tag"])
	assert.Equal(t, []interface{}{100.0, 200.0}, body["members"])

	w = get(e.r, "/api/admin/guilds/7/tags/ghosts/members", adminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(e.r, "/api/admin/guilds/7/users/100/tags", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"raiders", "crafters"}, decode(t, w)["tags"])

	w = get(e.r, "/api/admin/guilds/8/tags", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["count"])
}

func TestAdmin_InvalidIDs(t *testing.T) {
	e := newEnv(t, adminKey, false)
	for _, path := range []string{
		"/api/admin/guilds/abc/tags",
		"/api/admin/guilds/-1/tags",
		"/api/admin/guilds/7/users/x/tags",
		"/api/admin/guilds/x/admins",
	} {
		assert.Equal(t, http.StatusBadRequest, get(e.r, path, adminKey).Code, path)
	}
}

func TestAdmin_GuildAdmins(t *testing.T) {
	e := newEnv(t, adminKey, false)
	_, err := e.store.AddAdmin(context.Background(), 7, 300)
	require.NoError(t, err)

	w := get(e.r, "/api/admin/guilds/7/admins", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{300.0}, decode(t, w)["admins"])
}

func TestAdmin_Audit(t *testing.T) {
	e := newEnv(t, adminKey, true)
	w := get(e.r, "/api/admin/guilds/7/audit?limit=1", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 1.0, body["count"])
	entries := body["entries"].([]interface{})
	assert.Equal(t, "t2", entries[0].(map[string]interface{})["trace_id"])

	e = newEnv(t, adminKey, false)
	assert.Equal(t, http.StatusNotFound, get(e.r, "/api/admin/guilds/7/audit", adminKey).Code)
}

func TestAdmin_Scheduler(t *testing.T) {
	e := newEnv(t, adminKey, false)
	e.sched.AddTicker(rest.StoreProbeTask, time.Hour, scheduler.PingTask(e.store, time.Second))
	require.Eventually(t, func() bool {
		st, _ := e.sched.Status(rest.StoreProbeTask)
		return st.Runs > 0
	}, time.Second, 10*time.Millisecond)

	w := get(e.r, "/api/admin/scheduler", adminKey)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode(t, w)["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, rest.StoreProbeTask, tasks[0].(map[string]interface{})["name"])
}

func TestHealth(t *testing.T) {
	e := newEnv(t, adminKey, false)
	e.sched.AddTicker(rest.StoreProbeTask, time.Hour, scheduler.PingTask(e.store, time.Second))
	require.Eventually(t, func() bool {
		st, _ := e.sched.Status(rest.StoreProbeTask)
		return st.Healthy()
	}, time.Second, 10*time.Millisecond)

	w := get(e.r, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotNil(t, body["probe"])
}

func TestHealth_StoreDown(t *testing.T) {
	e := newEnv(t, adminKey, false)
	require.NoError(t, e.store.Close(context.Background()))

	w := get(e.r, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}
