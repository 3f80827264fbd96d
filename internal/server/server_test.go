package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vannot/vannot/internal/cache"
	"github.com/vannot/vannot/internal/index"
	"github.com/vannot/vannot/internal/merge"
	"github.com/vannot/vannot/internal/metrics"
	"github.com/vannot/vannot/internal/queue"
	"github.com/vannot/vannot/internal/service"
	"github.com/vannot/vannot/internal/store/fs"
	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/internal/vtt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := fs.New(t.TempDir(), log)
	require.NoError(t, backend.Init())

	recorder, err := metrics.NewRecorder()
	require.NoError(t, err)

	svc := service.New(
		backend,
		vtt.New(log, token.NewSequence("code")),
		merge.New(log),
		cache.NewContainerCache(),
		recorder,
		queue.New[service.IndexJob](),
		nil,
		log,
	)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(index.Models...))
	repo := index.NewRepository(db, log)

	return New(Config{
		Host:          "127.0.0.1",
		Port:          0,
		WSPort:        0,
		CORSOrigins:   "*",
		UploadLimitMB: 10,
	}, svc, repo, nil, log)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func createVideo(t *testing.T, s *Server) string {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodPost, "/api/videos", `{"fileName":"clip.mp4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	video := body["video"].(map[string]any)
	return video["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateVideo(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/api/videos", `{"fileName":"clip.mp4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	video := body["video"].(map[string]any)
	assert.NotEmpty(t, video["id"])
	assert.Equal(t, "clip", video["name"])
}

func TestCreateVideoValidation(t *testing.T) {
	s := newTestServer(t)

	resp, body := doJSON(t, s, http.MethodPost, "/api/videos", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "invalid_input", body["code"])

	resp, _ = doJSON(t, s, http.MethodPost, "/api/videos", `{broken`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSaveAndGetObjects(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)

	resp, body := doJSON(t, s, http.MethodPost, "/api/videos/"+id+"/objects",
		`{"objects":[{"name":"box1","time":10.0,"info":"first"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])

	// merging keeps the original temporal marker
	resp, body = doJSON(t, s, http.MethodPost, "/api/videos/"+id+"/objects",
		`{"objects":[{"name":"box1","time":99.0,"info":"second"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	objects := body["objects"].([]any)
	require.Len(t, objects, 1)
	first := objects[0].(map[string]any)
	assert.EqualValues(t, 10.0, first["time"])
	assert.Equal(t, "second", first["info"])

	resp, body = doJSON(t, s, http.MethodGet, "/api/videos/"+id+"/objects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "clip", body["source"])
}

func TestSaveObjectsAmbiguousGeometry(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)

	resp, body := doJSON(t, s, http.MethodPost, "/api/videos/"+id+"/objects",
		`{"objects":[{"name":"bad","time":1.0,"geometry":{
			"rectangle":{"start":{"x":0,"y":0},"end":{"x":1,"y":1}},
			"click":{"point":{"x":0,"y":0}}}}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestDeleteObject(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)
	doJSON(t, s, http.MethodPost, "/api/videos/"+id+"/objects",
		`{"objects":[{"name":"box1","time":1.0},{"name":"box2","time":2.0}]}`)

	resp, _ := doJSON(t, s, http.MethodDelete, "/api/videos/"+id+"/objects/box1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, s, http.MethodDelete, "/api/videos/"+id+"/objects/box1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	_, body = doJSON(t, s, http.MethodGet, "/api/videos/"+id+"/objects", "")
	assert.EqualValues(t, 1, body["count"])
}

func TestVideoNotFound(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/api/videos/missing/objects", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "not_found", body["code"])
}

func TestExportServesContainer(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+id+"/export", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/vtt")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), vtt.MarkerLine))
}

func TestProjectDownload(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)
	doJSON(t, s, http.MethodPost, "/api/videos/"+id+"/objects",
		`{"objects":[{"name":"box1","time":1.0}]}`)

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+id+"/project", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "project.json")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var export map[string]any
	require.NoError(t, json.Unmarshal(data, &export))
	assert.EqualValues(t, 1, export["version"])
}

func TestDeleteVideo(t *testing.T) {
	s := newTestServer(t)
	id := createVideo(t, s)

	resp, _ := doJSON(t, s, http.MethodDelete, "/api/videos/"+id, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/videos/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListVideos(t *testing.T) {
	s := newTestServer(t)
	createVideo(t, s)
	createVideo(t, s)

	resp, body := doJSON(t, s, http.MethodGet, "/api/videos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	videos := body["videos"].([]any)
	assert.Len(t, videos, 2)
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/api/search?name=box", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["count"])
}
