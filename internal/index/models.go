// Package index maintains a queryable catalog of videos and their annotated
// objects in a relational database. The VTT containers on disk stay the
// source of truth; the index is rebuilt from them and exists for listing
// and cross-video search.
package index

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VideoRecord is one uploaded video and its container location.
type VideoRecord struct {
	gorm.Model
	VideoID     string `gorm:"uniqueIndex;size:64"`
	Name        string `gorm:"index;size:255"`
	FileName    string `gorm:"size:255"`
	ObjectCount int
	AnnotatedAt time.Time
}

// ObjectRecord is one annotated object inside a video container.
type ObjectRecord struct {
	gorm.Model
	VideoID        string  `gorm:"index:idx_video_object,priority:1;size:64"`
	Name           string  `gorm:"index:idx_video_object,priority:2;size:255"`
	TemporalMarker float64 `gorm:"index"`
	Code           string  `gorm:"size:64"`
	Category       string  `gorm:"size:32"`
	Domain         string  `gorm:"size:255"`
	Info           string
	DerivedLink    string `gorm:"size:512"`

	// Bounding box of the drawn geometry in pixel space.
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64

	// Raw polygon payload carried through untouched.
	Polygon datatypes.JSON
}

// Models lists every table the index migrates.
var Models = []interface{}{
	&VideoRecord{},
	&ObjectRecord{},
}
