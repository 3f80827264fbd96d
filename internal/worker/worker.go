// Package worker runs the background index updater. Saves enqueue jobs;
// the worker drains them on an interval and rebuilds the catalog rows so
// container writes never wait on the database.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vannot/vannot/internal/index"
	"github.com/vannot/vannot/internal/queue"
	"github.com/vannot/vannot/internal/service"
	"github.com/vannot/vannot/internal/store"
	"github.com/vannot/vannot/internal/vtt"
	"github.com/vannot/vannot/pkg/core"
)

// DefaultInterval is how often the worker drains the job queue.
const DefaultInterval = 2 * time.Second

// Dependencies holds everything the index worker needs.
type Dependencies struct {
	Jobs    *queue.Queue[service.IndexJob]
	Repo    *index.Repository
	Backend store.Backend
	Codec   *vtt.Codec
	Logger  *slog.Logger
}

// Manager manages the index worker goroutine.
type Manager struct {
	deps     Dependencies
	interval time.Duration
}

// NewManager creates a worker manager.
func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps:     deps,
		interval: DefaultInterval,
	}
}

// SetInterval overrides the drain interval; useful in tests.
func (m *Manager) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Run drains the queue until the context is cancelled. A final drain on
// shutdown flushes whatever was queued after the last tick.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Drain()
			return
		case <-ticker.C:
			m.Drain()
		}
	}
}

// Drain processes every queued job. Later jobs for the same video win, so
// duplicates collapse to one refresh.
func (m *Manager) Drain() {
	jobs := m.deps.Jobs.GetAndEmpty()
	if len(jobs) == 0 {
		return
	}

	// last job per video wins
	latest := make(map[string]service.IndexJob, len(jobs))
	order := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if _, seen := latest[job.VideoID]; !seen {
			order = append(order, job.VideoID)
		}
		latest[job.VideoID] = job
	}

	for _, videoID := range order {
		job := latest[videoID]
		if err := m.process(job); err != nil {
			m.deps.Logger.Error("Index job failed",
				"video", job.VideoID, "delete", job.Delete, "error", err)
		}
	}
}

func (m *Manager) process(job service.IndexJob) error {
	if job.Delete {
		return m.deps.Repo.DeleteVideo(job.VideoID)
	}

	info, err := m.deps.Backend.GetVideo(job.VideoID)
	if err != nil {
		// deleted between enqueue and drain
		if errors.Is(err, core.ErrNotFound) {
			return m.deps.Repo.DeleteVideo(job.VideoID)
		}
		return err
	}

	var objects []core.AnnotatedObject
	var header core.Header
	text, err := m.deps.Backend.ReadContainer(job.VideoID)
	switch {
	case err == nil:
		objects, header, err = m.deps.Codec.Decode(text)
		if err != nil {
			return err
		}
	case errors.Is(err, core.ErrNotFound):
		// registered but never annotated
	default:
		return err
	}

	rec := index.VideoRecord{
		VideoID:     info.ID,
		Name:        info.Name,
		FileName:    info.FileName,
		ObjectCount: len(objects),
		AnnotatedAt: header.GeneratedAt,
	}
	return m.deps.Repo.ReplaceVideo(rec, objects)
}
