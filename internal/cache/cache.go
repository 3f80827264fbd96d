// Package cache keeps decoded containers in memory so repeated reads of the
// same video skip the disk and the VTT parser.
package cache

import (
	"sync"

	"github.com/vannot/vannot/pkg/core"
)

// entry is a decoded container snapshot.
type entry struct {
	objects []core.AnnotatedObject
	header  core.Header
}

// ContainerCache caches decoded object lists per video ID. Reads of an
// annotation list are far more frequent than saves, so a save invalidates
// and the next read repopulates.
type ContainerCache struct {
	m       sync.Mutex
	entries map[string]entry
}

func NewContainerCache() *ContainerCache {
	return &ContainerCache{
		entries: make(map[string]entry),
	}
}

// Get returns a copy of the cached object list for the video, if present.
func (c *ContainerCache) Get(videoID string) ([]core.AnnotatedObject, core.Header, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.entries[videoID]
	if !ok {
		return nil, core.Header{}, false
	}
	objects := make([]core.AnnotatedObject, len(e.objects))
	copy(objects, e.objects)
	return objects, e.header, true
}

// Put stores a copy of the decoded container for the video.
func (c *ContainerCache) Put(videoID string, objects []core.AnnotatedObject, header core.Header) {
	stored := make([]core.AnnotatedObject, len(objects))
	copy(stored, objects)
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[videoID] = entry{objects: stored, header: header}
}

// Invalidate drops the cached container for the video.
func (c *ContainerCache) Invalidate(videoID string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.entries, videoID)
}

// Reset drops everything.
func (c *ContainerCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of cached containers.
func (c *ContainerCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}

// SafeCounter is a thread-safe counter.
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
