package index

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vannot/vannot/pkg/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models...))
	return NewRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleObjects() []core.AnnotatedObject {
	return []core.AnnotatedObject{
		{
			Name:           "box1",
			TemporalMarker: 1.5,
			Code:           "abc123",
			Category:       "GTIN",
			Domain:         "https://id.gs1.org",
			DerivedLink:    "https://id.gs1.org/01/abc123",
			Geometry: &core.Geometry{
				Rectangle: &core.Rectangle{
					Start: core.Point{X: 10, Y: 20},
					End:   core.Point{X: 30, Y: 40},
				},
			},
		},
		{
			Name:           "click1",
			TemporalMarker: 3.0,
			Geometry: &core.Geometry{
				Click: &core.Click{Point: core.Point{X: 5, Y: 5}},
			},
		},
	}
}

func TestReplaceVideoCreatesRows(t *testing.T) {
	repo := newTestRepo(t)

	rec := VideoRecord{
		VideoID:     "vid-1",
		Name:        "clip",
		FileName:    "clip.mp4",
		ObjectCount: 2,
		AnnotatedAt: time.Now(),
	}
	require.NoError(t, repo.ReplaceVideo(rec, sampleObjects()))

	videos, err := repo.ListVideos()
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "vid-1", videos[0].VideoID)
	assert.Equal(t, 2, videos[0].ObjectCount)

	rows, err := repo.FindObjects("")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "box1", rows[0].Name)
	assert.Equal(t, 10.0, rows[0].MinX)
	assert.Equal(t, 40.0, rows[0].MaxY)
}

func TestReplaceVideoRebuildsObjectRows(t *testing.T) {
	repo := newTestRepo(t)

	rec := VideoRecord{VideoID: "vid-1", Name: "clip", ObjectCount: 2}
	require.NoError(t, repo.ReplaceVideo(rec, sampleObjects()))

	// second save replaces the whole object set
	rec.ObjectCount = 1
	require.NoError(t, repo.ReplaceVideo(rec, sampleObjects()[:1]))

	videos, err := repo.ListVideos()
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, 1, videos[0].ObjectCount)

	rows, err := repo.FindObjects("")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFindObjectsByNameFragment(t *testing.T) {
	repo := newTestRepo(t)
	rec := VideoRecord{VideoID: "vid-1", Name: "clip", ObjectCount: 2}
	require.NoError(t, repo.ReplaceVideo(rec, sampleObjects()))

	rows, err := repo.FindObjects("box")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "box1", rows[0].Name)
}

func TestDeleteVideo(t *testing.T) {
	repo := newTestRepo(t)
	rec := VideoRecord{VideoID: "vid-1", Name: "clip", ObjectCount: 2}
	require.NoError(t, repo.ReplaceVideo(rec, sampleObjects()))

	require.NoError(t, repo.DeleteVideo("vid-1"))

	videos, err := repo.ListVideos()
	require.NoError(t, err)
	assert.Empty(t, videos)

	rows, err := repo.FindObjects("")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
