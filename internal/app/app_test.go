package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradebook/internal/config"
	"gradebook/internal/services"
	"gradebook/internal/shared/testutil"
	"gradebook/pkg/contracts/domain"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Telemetry.Tracing = false
	cfg.Telemetry.Metrics = true
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	return a
}

func serve(a *Application, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func createClass(t *testing.T, a *Application, name string) domain.Class {
	t.Helper()
	rec := serve(a, http.MethodPost, "/api/classes", strings.NewReader(`{"name": "`+name+`"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var class domain.Class
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &class))
	return class
}

func TestNew_MemoryStore(t *testing.T) {
	a := newTestApp(t, testConfig())
	t.Cleanup(func() { a.Stop(context.Background()) })

	assert.NotNil(t, a.Services.Records)
	assert.NotNil(t, a.Services.Gradebook)
	assert.NotNil(t, a.Services.Imports)
	assert.NotNil(t, a.Services.Health)
	assert.Nil(t, a.Backup, "no backup without a path")

	rec := serve(a, http.MethodGet, "/api/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(a, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(a, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestApplication_ImportAndRoster(t *testing.T) {
	a := newTestApp(t, testConfig())
	t.Cleanup(func() { a.Stop(context.Background()) })
	class := createClass(t, a, "ESL 3")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", "casas"))
	fw, err := mw.CreateFormFile("file", "casas.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, testutil.CSV(
		"Student Name,Test Date,Form,Scale Score",
		"Ana Lopez,2024-09-15,627R,205",
		"Ana Lopez,2024-10-15,629R,210",
		"Ben Ortiz,2024-09-20,629L2,205",
	))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := serve(a, http.MethodPost, "/api/classes/"+class.ID+"/imports", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum services.ImportSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Saved)
	assert.ElementsMatch(t, []string{"Ana Lopez", "Ben Ortiz"}, sum.StudentsCreated)

	rec = serve(a, http.MethodGet, "/api/classes/"+class.ID+"/roster", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var roster services.Roster
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
	require.Len(t, roster.Students, 2)
	for _, e := range roster.Students {
		if e.Name == "Ana Lopez" {
			assert.Equal(t, 210.0, e.CasasReadingLast.Float64)
		}
	}
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	a := newTestApp(t, cfg)
	t.Cleanup(func() { a.Stop(context.Background()) })

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/api/health", nil, "").Code)
	rec := serve(a, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestApplication_BackupRestore(t *testing.T) {
	cfg := testConfig()
	cfg.Backup.Path = filepath.Join(t.TempDir(), "backup", "gradebook.json")
	cfg.Backup.Debounce = time.Hour

	a := newTestApp(t, cfg)
	require.NotNil(t, a.Backup)
	class := createClass(t, a, "ESL 3")
	assert.True(t, a.Backup.Pending())
	require.NoError(t, a.Stop(context.Background()))
	assert.FileExists(t, cfg.Backup.Path)

	b := newTestApp(t, cfg)
	t.Cleanup(func() { b.Stop(context.Background()) })
	rec := serve(b, http.MethodGet, "/api/classes/"+class.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ESL 3")
}

func TestApplication_CorruptBackup(t *testing.T) {
	cfg := testConfig()
	cfg.Backup.Path = filepath.Join(t.TempDir(), "gradebook.json")
	require.NoError(t, os.WriteFile(cfg.Backup.Path, []byte("{not json"), 0o600))

	logger, _ := testutil.NewTestLogger(t)
	_, err := New(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup")
}

func TestApplication_SQLiteStore(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "gradebook.db") + "?_pragma=busy_timeout(5000)"

	a := newTestApp(t, cfg)
	class := createClass(t, a, "Evening ESL")
	require.NoError(t, a.Stop(context.Background()))

	b := newTestApp(t, cfg)
	t.Cleanup(func() { b.Stop(context.Background()) })
	rec := serve(b, http.MethodGet, "/api/classes/"+class.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Evening ESL")
}

func TestApplication_BadDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "missing", "dir", "gradebook.db") + "?mode=ro"

	logger, _ := testutil.NewTestLogger(t)
	_, err := New(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	require.NotEqual(t, ":0", a.Addr())

	resp, err := http.Get("http://" + a.Addr() + "/api/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	_, err = http.Get("http://" + a.Addr() + "/api/health/live")
	assert.Error(t, err)
}
