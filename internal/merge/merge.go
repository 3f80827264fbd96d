// Package merge combines an existing decoded object list with a newly
// submitted batch. Identity is the object name: known names are updated in
// place but keep their original temporal marker, new names are appended with
// their marker probed away from collisions.
package merge

import (
	"log/slog"
	"math"
	"sort"

	"github.com/vannot/vannot/pkg/core"
)

// Collision constants carried over from the original annotation tool.
// Two markers closer than the tolerance are considered the same instant.
const (
	CollisionTolerance = 0.1
	CollisionStep      = 0.1
)

// Engine merges object lists. Pure; the logger is its only dependency.
type Engine struct {
	logger *slog.Logger
}

// New creates a merge engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// collides reports whether marker sits within the tolerance of any marker
// already present in the working list.
func collides(working []core.AnnotatedObject, marker float64) bool {
	for _, obj := range working {
		if math.Abs(obj.TemporalMarker-marker) < CollisionTolerance {
			return true
		}
	}
	return false
}

// Merge combines existing and incoming into one list.
//
// For each incoming object:
//   - no name: dropped whole (hard validation, not best-effort recovery)
//   - name already present: every field is replaced by the incoming value
//     except TemporalMarker, which keeps the existing object's value
//   - new name: appended; its marker is incremented by CollisionStep until it
//     clears every marker in the working list (existing plus already-appended)
//
// The result is sorted ascending by TemporalMarker; the sort is stable so
// pre-existing exact duplicates keep their relative order.
func (e *Engine) Merge(existing, incoming []core.AnnotatedObject) []core.AnnotatedObject {
	working := make([]core.AnnotatedObject, len(existing))
	copy(working, existing)

	index := make(map[string]int, len(working))
	for i, obj := range working {
		index[obj.Name] = i
	}

	for _, in := range incoming {
		if in.Name == "" {
			e.logger.Warn("Dropping incoming object without a name",
				"temporalMarker", in.TemporalMarker)
			continue
		}

		if i, ok := index[in.Name]; ok {
			kept := working[i].TemporalMarker
			working[i] = in
			working[i].TemporalMarker = kept
			continue
		}

		for collides(working, in.TemporalMarker) {
			in.TemporalMarker += CollisionStep
		}
		index[in.Name] = len(working)
		working = append(working, in)
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].TemporalMarker < working[j].TemporalMarker
	})

	return working
}

// DeleteByName removes the object with the given name, returning the
// filtered list and whether anything was removed.
func DeleteByName(objects []core.AnnotatedObject, name string) ([]core.AnnotatedObject, bool) {
	out := make([]core.AnnotatedObject, 0, len(objects))
	removed := false
	for _, obj := range objects {
		if obj.Name == name {
			removed = true
			continue
		}
		out = append(out, obj)
	}
	return out, removed
}
