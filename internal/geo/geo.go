// Package geo provides pixel-space helpers for annotation geometry:
// validation and bounding-box computation. Coordinates are video-frame
// pixels; there is no CRS and no projection involved.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/vannot/vannot/pkg/core"
)

// ErrNoGeometry is returned by BoundsOf for nil or empty geometry.
var ErrNoGeometry = errors.New("object has no geometry")

// ErrNonFiniteCoordinate is returned when a coordinate is NaN or infinite.
var ErrNonFiniteCoordinate = errors.New("coordinate is not finite")

// Bounds is an axis-aligned pixel bounding box.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

func finite(p core.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Validate checks that a geometry is well-formed: at most one shape
// populated, all coordinates finite, paths with at least two points.
func Validate(g *core.Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	switch g.Kind() {
	case core.KindRectangle:
		if !finite(g.Rectangle.Start) || !finite(g.Rectangle.End) {
			return ErrNonFiniteCoordinate
		}
	case core.KindClick:
		if !finite(g.Click.Point) {
			return ErrNonFiniteCoordinate
		}
	case core.KindPath:
		if len(g.Path.Points) < 2 {
			return fmt.Errorf("path must have at least 2 points, got %d", len(g.Path.Points))
		}
		for i, p := range g.Path.Points {
			if !finite(p) {
				return fmt.Errorf("path point %d: %w", i, ErrNonFiniteCoordinate)
			}
		}
	}
	return nil
}

// PathLineString converts a freehand path into a simplefeatures LineString.
func PathLineString(p *core.Path) (geom.LineString, error) {
	if len(p.Points) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(p.Points))
	}
	flat := make([]float64, 0, len(p.Points)*2)
	for _, pt := range p.Points {
		flat = append(flat, pt.X, pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// xys flattens a geometry's coordinates.
func xys(g *core.Geometry) []geom.XY {
	switch g.Kind() {
	case core.KindRectangle:
		return []geom.XY{
			{X: g.Rectangle.Start.X, Y: g.Rectangle.Start.Y},
			{X: g.Rectangle.End.X, Y: g.Rectangle.End.Y},
		}
	case core.KindClick:
		return []geom.XY{{X: g.Click.Point.X, Y: g.Click.Point.Y}}
	case core.KindPath:
		pts := make([]geom.XY, len(g.Path.Points))
		for i, p := range g.Path.Points {
			pts[i] = geom.XY{X: p.X, Y: p.Y}
		}
		return pts
	default:
		return nil
	}
}

// BoundsOf computes the axis-aligned bounding box of a geometry. A click
// yields a degenerate box (min == max). Nil geometry returns ErrNoGeometry.
func BoundsOf(g *core.Geometry) (Bounds, error) {
	pts := xys(g)
	if len(pts) == 0 {
		return Bounds{}, ErrNoGeometry
	}

	env := geom.NewEnvelope(pts...)
	min, max, ok := env.MinMaxXYs()
	if !ok {
		return Bounds{}, ErrNoGeometry
	}
	return Bounds{MinX: min.X, MinY: min.Y, MaxX: max.X, MaxY: max.Y}, nil
}
