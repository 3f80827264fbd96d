// Package fs is the filesystem storage backend. Every video gets its own
// directory under the data root, holding the video metadata, the VTT
// container and any exported project file side by side.
package fs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vannot/vannot/internal/util"
	"github.com/vannot/vannot/pkg/core"
)

const (
	metaFile        = "video.json"
	containerFile   = "annotations.vtt"
	projectFile     = "project.json"
	projectFileGzip = "project.json.gz"
)

// Store keeps per-video directories under root. The id to directory map is
// rebuilt from disk on Init, so the data root survives restarts.
type Store struct {
	root   string
	logger *slog.Logger

	mu   sync.Mutex
	dirs map[string]string // video ID -> directory name under root
}

// New creates a filesystem store rooted at dataDir. Call Init before use.
func New(dataDir string, logger *slog.Logger) *Store {
	return &Store{
		root:   dataDir,
		logger: logger,
		dirs:   make(map[string]string),
	}
}

// Init creates the data root and indexes the existing video directories.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("creating data root: %w", err)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("scanning data root: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := readMeta(filepath.Join(s.root, entry.Name(), metaFile))
		if err != nil {
			s.logger.Warn("Skipping directory without readable metadata",
				"dir", entry.Name(), "error", err)
			continue
		}
		s.dirs[info.ID] = entry.Name()
	}
	s.logger.Info("Filesystem store initialized", "root", s.root, "videos", len(s.dirs))
	return nil
}

// Close is a no-op for the filesystem backend.
func (s *Store) Close() error {
	return nil
}

func readMeta(path string) (core.VideoInfo, error) {
	var info core.VideoInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parsing %s: %w", metaFile, err)
	}
	return info, nil
}

// CreateVideo registers a video and creates its directory. The directory
// name comes from the sanitized file name; clashes get a numeric suffix
// like "clip(1)".
func (s *Store) CreateVideo(id, fileName string) (core.VideoInfo, error) {
	base, _ := util.SplitExt(util.SanitizeName(fileName))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dirs[id]; ok {
		return core.VideoInfo{}, fmt.Errorf("video %q already exists", id)
	}

	dirName := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.root, dirName)); os.IsNotExist(err) {
			break
		}
		dirName = util.NumberedName(base, i)
	}

	dir := filepath.Join(s.root, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.VideoInfo{}, fmt.Errorf("creating video directory: %w", err)
	}

	info := core.VideoInfo{
		ID:        id,
		Name:      dirName,
		FileName:  fileName,
		CreatedAt: time.Now(),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return core.VideoInfo{}, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := atomicWrite(filepath.Join(dir, metaFile), data); err != nil {
		return core.VideoInfo{}, err
	}

	s.dirs[id] = dirName
	s.logger.Info("Video registered", "id", id, "dir", dirName)
	return info, nil
}

func (s *Store) dirFor(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirName, ok := s.dirs[id]
	if !ok {
		return "", core.ErrNotFound
	}
	return filepath.Join(s.root, dirName), nil
}

// GetVideo returns the metadata for a registered video.
func (s *Store) GetVideo(id string) (core.VideoInfo, error) {
	dir, err := s.dirFor(id)
	if err != nil {
		return core.VideoInfo{}, err
	}
	info, err := readMeta(filepath.Join(dir, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return core.VideoInfo{}, core.ErrNotFound
		}
		return core.VideoInfo{}, err
	}
	return info, nil
}

// ListVideos returns all registered videos sorted by creation time.
func (s *Store) ListVideos() ([]core.VideoInfo, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.dirs))
	for id := range s.dirs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	videos := make([]core.VideoInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.GetVideo(id)
		if err != nil {
			s.logger.Warn("Skipping unreadable video", "id", id, "error", err)
			continue
		}
		videos = append(videos, info)
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	})
	return videos, nil
}

// DeleteVideo removes the video directory and everything in it.
func (s *Store) DeleteVideo(id string) error {
	s.mu.Lock()
	dirName, ok := s.dirs[id]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	delete(s.dirs, id)
	s.mu.Unlock()

	if err := os.RemoveAll(filepath.Join(s.root, dirName)); err != nil {
		return fmt.Errorf("removing video directory: %w", err)
	}
	s.logger.Info("Video deleted", "id", id, "dir", dirName)
	return nil
}

// ReadContainer returns the VTT container text for a video.
// A registered video with no container yet reports core.ErrNotFound.
func (s *Store) ReadContainer(id string) (string, error) {
	dir, err := s.dirFor(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, containerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("reading container: %w", err)
	}
	return string(data), nil
}

// WriteContainer atomically replaces the VTT container text for a video.
func (s *Store) WriteContainer(id string, text string) error {
	dir, err := s.dirFor(id)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(dir, containerFile), []byte(text))
}

// WriteProject stores the project export next to the container, replacing
// any previous export of either compression flavor. Returns the file name.
func (s *Store) WriteProject(id string, data []byte, compress bool) (string, error) {
	dir, err := s.dirFor(id)
	if err != nil {
		return "", err
	}

	name := projectFile
	stale := projectFileGzip
	if compress {
		name, stale = projectFileGzip, projectFile
	}
	if err := atomicWrite(filepath.Join(dir, name), data); err != nil {
		return "", err
	}
	if err := os.Remove(filepath.Join(dir, stale)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Could not remove stale project file", "id", id, "file", stale, "error", err)
	}
	return name, nil
}

// ReadProject returns the stored project export and its file name.
func (s *Store) ReadProject(id string) ([]byte, string, error) {
	dir, err := s.dirFor(id)
	if err != nil {
		return nil, "", err
	}
	for _, name := range []string{projectFile, projectFileGzip} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, name, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("reading project: %w", err)
		}
	}
	return nil, "", core.ErrNotFound
}

// atomicWrite writes data to a temp file in the target directory and renames
// it into place, so readers never observe a half-written file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
