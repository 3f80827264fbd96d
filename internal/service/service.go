// Package service orchestrates the annotation workflow: it owns the
// load, decode, merge, encode, save cycle for every video container and
// serializes writers per video so concurrent saves cannot interleave.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vannot/vannot/internal/cache"
	"github.com/vannot/vannot/internal/merge"
	"github.com/vannot/vannot/internal/metrics"
	"github.com/vannot/vannot/internal/project"
	"github.com/vannot/vannot/internal/queue"
	"github.com/vannot/vannot/internal/store"
	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/internal/vtt"
	"github.com/vannot/vannot/pkg/core"
)

// IndexJob asks the background worker to refresh or drop a video's
// catalog rows.
type IndexJob struct {
	VideoID string
	Delete  bool
}

// Notifier receives change events for connected clients. Implementations
// must not block.
type Notifier interface {
	VideoUpdated(videoID string, objectCount int)
	VideoDeleted(videoID string)
}

// noopNotifier is used when no websocket hub is wired.
type noopNotifier struct{}

func (noopNotifier) VideoUpdated(string, int) {}
func (noopNotifier) VideoDeleted(string)      {}

// Service is the annotation orchestrator.
type Service struct {
	backend  store.Backend
	codec    *vtt.Codec
	merger   *merge.Engine
	cache    *cache.ContainerCache
	recorder *metrics.Recorder
	jobs     *queue.Queue[IndexJob]
	notifier Notifier
	logger   *slog.Logger

	// per-video write locks
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// CompressProjects selects gzip output for project exports.
	CompressProjects bool
}

// New creates a service. jobs and notifier may be nil when indexing or
// websocket notification is not wired.
func New(backend store.Backend, codec *vtt.Codec, merger *merge.Engine,
	containerCache *cache.ContainerCache, recorder *metrics.Recorder,
	jobs *queue.Queue[IndexJob], notifier Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		backend:  backend,
		codec:    codec,
		merger:   merger,
		cache:    containerCache,
		recorder: recorder,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the write mutex for a video, creating it on first use.
func (s *Service) lockFor(videoID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[videoID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[videoID] = l
	}
	return l
}

func (s *Service) enqueue(job IndexJob) {
	if s.jobs != nil {
		s.jobs.Push(job)
	}
}

// CreateVideo registers a new video and writes its empty container.
func (s *Service) CreateVideo(ctx context.Context, fileName string) (core.VideoInfo, error) {
	info, err := s.backend.CreateVideo(token.NewVideoID(), fileName)
	if err != nil {
		return core.VideoInfo{}, fmt.Errorf("registering video: %w", err)
	}

	text, err := s.codec.Encode(nil, core.Header{VideoName: info.Name})
	if err != nil {
		return core.VideoInfo{}, fmt.Errorf("encoding empty container: %w", err)
	}
	if err := s.backend.WriteContainer(info.ID, text); err != nil {
		return core.VideoInfo{}, fmt.Errorf("writing empty container: %w", err)
	}

	s.recorder.Saved(ctx, info.ID)
	s.enqueue(IndexJob{VideoID: info.ID})
	s.logger.Info("Video created", "id", info.ID, "name", info.Name)
	return info, nil
}

// GetVideo returns a video's metadata.
func (s *Service) GetVideo(_ context.Context, videoID string) (core.VideoInfo, error) {
	return s.backend.GetVideo(videoID)
}

// ListVideos returns all registered videos.
func (s *Service) ListVideos(_ context.Context) ([]core.VideoInfo, error) {
	return s.backend.ListVideos()
}

// GetObjects returns the decoded object list for a video. A registered
// video with no container yet yields an empty list, not an error.
func (s *Service) GetObjects(ctx context.Context, videoID string) ([]core.AnnotatedObject, core.Header, error) {
	if objects, header, ok := s.cache.Get(videoID); ok {
		return objects, header, nil
	}
	return s.loadAndCache(ctx, videoID)
}

// loadAndCache reads, decodes and caches the container for a video.
// The caller must ensure the video exists or tolerate ErrNotFound.
func (s *Service) loadAndCache(ctx context.Context, videoID string) ([]core.AnnotatedObject, core.Header, error) {
	info, err := s.backend.GetVideo(videoID)
	if err != nil {
		return nil, core.Header{}, err
	}

	text, err := s.backend.ReadContainer(videoID)
	if errors.Is(err, core.ErrNotFound) {
		// registered but never annotated
		header := core.Header{VideoName: info.Name}
		return []core.AnnotatedObject{}, header, nil
	}
	if err != nil {
		return nil, core.Header{}, fmt.Errorf("reading container: %w", err)
	}

	objects, header, err := s.codec.Decode(text)
	if err != nil {
		s.recorder.ParseError(ctx, videoID)
		return nil, core.Header{}, fmt.Errorf("decoding container: %w", err)
	}
	s.recorder.Decoded(ctx, videoID, len(objects))
	s.cache.Put(videoID, objects, header)
	return objects, header, nil
}

// SaveObjects merges the incoming objects into the video's working list and
// persists the result. Returns the merged list as saved.
func (s *Service) SaveObjects(ctx context.Context, videoID string, incoming []core.AnnotatedObject) ([]core.AnnotatedObject, error) {
	lock := s.lockFor(videoID)
	lock.Lock()
	defer lock.Unlock()

	existing, header, err := s.loadAndCache(ctx, videoID)
	if err != nil {
		return nil, err
	}

	merged := s.merger.Merge(existing, incoming)
	s.recorder.Merged(ctx, videoID, len(incoming))

	if err := s.persist(ctx, videoID, merged, header.VideoName); err != nil {
		return nil, err
	}
	return merged, nil
}

// DeleteObject removes one object by name and persists the shrunk list.
// Returns core.ErrNotFound when no object carries the name.
func (s *Service) DeleteObject(ctx context.Context, videoID, name string) error {
	lock := s.lockFor(videoID)
	lock.Lock()
	defer lock.Unlock()

	existing, header, err := s.loadAndCache(ctx, videoID)
	if err != nil {
		return err
	}

	remaining, found := merge.DeleteByName(existing, name)
	if !found {
		return fmt.Errorf("object %q: %w", name, core.ErrNotFound)
	}
	return s.persist(ctx, videoID, remaining, header.VideoName)
}

// persist encodes and writes the object list, refreshes the cache and
// fans out change notifications. Callers hold the video's write lock.
func (s *Service) persist(ctx context.Context, videoID string, objects []core.AnnotatedObject, videoName string) error {
	header := core.Header{
		VideoName:   videoName,
		GeneratedAt: time.Now(),
	}

	text, err := s.codec.Encode(objects, header)
	if err != nil {
		return fmt.Errorf("encoding container: %w", err)
	}
	if err := s.backend.WriteContainer(videoID, text); err != nil {
		return fmt.Errorf("writing container: %w", err)
	}

	// re-decode rather than cache the input: the encoder fills defaults
	// (codes, categories, links) the caller never saw
	saved, savedHeader, err := s.codec.Decode(text)
	if err != nil {
		return fmt.Errorf("re-reading saved container: %w", err)
	}
	s.cache.Put(videoID, saved, savedHeader)

	s.recorder.Encoded(ctx, videoID, len(objects))
	s.recorder.Saved(ctx, videoID)
	s.enqueue(IndexJob{VideoID: videoID})
	s.notifier.VideoUpdated(videoID, len(saved))
	s.logger.Info("Container saved", "id", videoID, "objects", len(saved))
	return nil
}

// DeleteVideo removes the video and all of its files.
func (s *Service) DeleteVideo(_ context.Context, videoID string) error {
	lock := s.lockFor(videoID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.backend.DeleteVideo(videoID); err != nil {
		return err
	}
	s.cache.Invalidate(videoID)
	s.enqueue(IndexJob{VideoID: videoID, Delete: true})
	s.notifier.VideoDeleted(videoID)
	s.logger.Info("Video removed", "id", videoID)
	return nil
}

// ExportProject builds and stores the project file for a video, returning
// its bytes and file name.
func (s *Service) ExportProject(ctx context.Context, videoID string) ([]byte, string, error) {
	info, err := s.backend.GetVideo(videoID)
	if err != nil {
		return nil, "", err
	}
	objects, header, err := s.GetObjects(ctx, videoID)
	if err != nil {
		return nil, "", err
	}

	data, err := project.Encode(project.Build(info, header, objects), s.CompressProjects)
	if err != nil {
		return nil, "", err
	}
	name, err := s.backend.WriteProject(videoID, data, s.CompressProjects)
	if err != nil {
		return nil, "", fmt.Errorf("writing project: %w", err)
	}
	return data, name, nil
}

// RawContainer returns the stored container text for download.
func (s *Service) RawContainer(_ context.Context, videoID string) (string, error) {
	text, err := s.backend.ReadContainer(videoID)
	if errors.Is(err, core.ErrNotFound) {
		// distinguish missing video from missing container
		if _, infoErr := s.backend.GetVideo(videoID); infoErr != nil {
			return "", infoErr
		}
		empty, encErr := s.codec.Encode(nil, core.Header{})
		if encErr != nil {
			return "", encErr
		}
		return empty, nil
	}
	return text, err
}
