// pkg/core/object.go
package core

import (
	"encoding/json"
	"errors"
	"time"
)

// Point is a 2D pixel coordinate on a video frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rectangle is a drag-drawn region defined by two opposite corners.
type Rectangle struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Click is a single clicked point.
type Click struct {
	Point Point `json:"point"`
}

// Path is a freehand stroke.
type Path struct {
	Points []Point `json:"points"`
}

// Geometry is a tagged union: exactly one of Rectangle, Click or Path is set.
// A nil *Geometry means the object carries no geometry, which is valid.
type Geometry struct {
	Rectangle *Rectangle `json:"rectangle,omitempty"`
	Click     *Click     `json:"click,omitempty"`
	Path      *Path      `json:"path,omitempty"`
}

// Geometry kinds as recovered by Kind.
const (
	KindRectangle = "rectangle"
	KindClick     = "click"
	KindPath      = "path"
	KindNone      = "none"
)

// ErrAmbiguousGeometry is returned when more than one shape field is populated.
var ErrAmbiguousGeometry = errors.New("geometry has more than one shape populated")

// Kind returns which shape is populated. A geometry with no shape set
// reports KindNone; callers treat that the same as a nil Geometry.
func (g *Geometry) Kind() string {
	switch {
	case g == nil:
		return KindNone
	case g.Rectangle != nil:
		return KindRectangle
	case g.Click != nil:
		return KindClick
	case g.Path != nil:
		return KindPath
	default:
		return KindNone
	}
}

// Validate checks the exactly-one-shape invariant.
func (g *Geometry) Validate() error {
	if g == nil {
		return nil
	}
	n := 0
	if g.Rectangle != nil {
		n++
	}
	if g.Click != nil {
		n++
	}
	if g.Path != nil {
		n++
	}
	if n > 1 {
		return ErrAmbiguousGeometry
	}
	return nil
}

// AnnotatedObject is one user-created region of interest with its metadata.
// Name is the merge identity key within a container. DerivedLink is always
// recomputed from Domain, Category and Code at encode time; a stored value
// is never authoritative.
type AnnotatedObject struct {
	Name           string          `json:"name"`
	TemporalMarker float64         `json:"time"`
	Code           string          `json:"code"`
	Category       string          `json:"category"`
	Domain         string          `json:"domain"`
	Info           string          `json:"info"`
	DerivedLink    string          `json:"link"`
	Geometry       *Geometry       `json:"geometry"`
	Polygon        json.RawMessage `json:"polygon"`
}

// Header is the container preamble: which video the objects belong to,
// when the container text was generated, and how many object blocks follow.
type Header struct {
	VideoName   string
	GeneratedAt time.Time
	ObjectCount int
}

// VideoInfo describes one registered video.
type VideoInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FileName  string    `json:"fileName"`
	CreatedAt time.Time `json:"createdAt"`
}
