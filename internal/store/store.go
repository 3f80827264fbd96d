// Package store defines the persistence interface for video containers and
// project exports. Implementations keep the encoded VTT text authoritative;
// callers decode and re-encode around it.
package store

import (
	"github.com/vannot/vannot/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
// Missing videos or files are reported as core.ErrNotFound.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Video management
	CreateVideo(id, fileName string) (core.VideoInfo, error)
	GetVideo(id string) (core.VideoInfo, error)
	ListVideos() ([]core.VideoInfo, error)
	DeleteVideo(id string) error

	// Container text
	ReadContainer(id string) (string, error)
	WriteContainer(id string, text string) error

	// Project export, stored next to the container
	WriteProject(id string, data []byte, compress bool) (string, error)
	ReadProject(id string) ([]byte, string, error)
}
