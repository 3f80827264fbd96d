package merge

import (
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vannot/vannot/pkg/core"
)

func newTestEngine() *Engine {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func obj(name string, marker float64) core.AnnotatedObject {
	return core.AnnotatedObject{Name: name, TemporalMarker: marker}
}

func TestMergeEmptyIncomingIsIdentity(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{obj("A", 1.0), obj("B", 2.0)}
	assert.Equal(t, existing, e.Merge(existing, nil))
	assert.Equal(t, existing, e.Merge(existing, []core.AnnotatedObject{}))

	assert.Empty(t, e.Merge(nil, nil))
}

func TestMergeUpdateKeepsTemporalMarker(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{{
		Name:           "Object(1)",
		TemporalMarker: 5.0,
		Info:           "old description",
		Code:           "C1",
	}}
	incoming := []core.AnnotatedObject{{
		Name:           "Object(1)",
		TemporalMarker: 9.0,
		Info:           "new description",
		Code:           "C1-v2",
		Category:       core.CategoryGTIN,
	}}

	result := e.Merge(existing, incoming)
	require.Len(t, result, 1)
	assert.Equal(t, 5.0, result[0].TemporalMarker, "first write wins on time")
	assert.Equal(t, "new description", result[0].Info, "last write wins on fields")
	assert.Equal(t, "C1-v2", result[0].Code)
	assert.Equal(t, core.CategoryGTIN, result[0].Category)
}

func TestMergeCollisionProbeSequence(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{obj("A", 10.0)}
	incoming := []core.AnnotatedObject{obj("B", 10.05)}

	result := e.Merge(existing, incoming)
	require.Len(t, result, 2)

	// |10.05-10.0| < 0.1 → probe to 10.15; |10.15-10.0| >= 0.1 → accepted.
	// The exact increment sequence matters, not just "outside tolerance".
	byName := map[string]float64{}
	for _, o := range result {
		byName[o.Name] = o.TemporalMarker
	}
	assert.Equal(t, 10.0, byName["A"])
	assert.InDelta(t, 10.15, byName["B"], 1e-9)
}

func TestMergeCollisionAgainstAlreadyAppended(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{obj("A", 1.0)}
	incoming := []core.AnnotatedObject{obj("B", 1.0), obj("C", 1.0)}

	result := e.Merge(existing, incoming)
	require.Len(t, result, 3)

	markers := map[string]float64{}
	for _, o := range result {
		markers[o.Name] = o.TemporalMarker
	}
	// B probes 1.0 → 1.1 (exactly the tolerance away from A, accepted).
	// C probes 1.0 → 1.1 (collides with B) → 1.2.
	assert.Equal(t, 1.0, markers["A"])
	assert.InDelta(t, 1.1, markers["B"], 1e-9)
	assert.InDelta(t, 1.2, markers["C"], 1e-9)
}

func TestMergeDropsNamelessIncoming(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{obj("A", 1.0)}
	incoming := []core.AnnotatedObject{{TemporalMarker: 1.0, Info: "anonymous"}}

	result := e.Merge(existing, incoming)
	assert.Equal(t, existing, result)
}

func TestMergeResultSortedAscending(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{obj("C", 30.0), obj("A", 10.0)}
	incoming := []core.AnnotatedObject{obj("B", 20.0), obj("D", 5.0)}

	result := e.Merge(existing, incoming)
	require.Len(t, result, 4)
	assert.True(t, sort.SliceIsSorted(result, func(i, j int) bool {
		return result[i].TemporalMarker < result[j].TemporalMarker
	}))
}

func TestMergeStableOnPreexistingDuplicates(t *testing.T) {
	e := newTestEngine()

	// pre-existing data that was never collision-adjusted
	existing := []core.AnnotatedObject{obj("first", 3.0), obj("second", 3.0)}

	result := e.Merge(existing, nil)
	require.Len(t, result, 2)
	assert.Equal(t, "first", result[0].Name)
	assert.Equal(t, "second", result[1].Name)
}

func TestMergeMixedBatch(t *testing.T) {
	e := newTestEngine()

	existing := []core.AnnotatedObject{
		{Name: "keep", TemporalMarker: 2.0, Info: "unchanged"},
		{Name: "update", TemporalMarker: 4.0, Info: "old"},
	}
	incoming := []core.AnnotatedObject{
		{Name: "update", TemporalMarker: 99.0, Info: "new"},
		{Name: "", TemporalMarker: 1.0},
		{Name: "append", TemporalMarker: 6.0},
	}

	result := e.Merge(existing, incoming)
	require.Len(t, result, 3)

	byName := map[string]core.AnnotatedObject{}
	for _, o := range result {
		byName[o.Name] = o
	}
	assert.Equal(t, "unchanged", byName["keep"].Info)
	assert.Equal(t, 4.0, byName["update"].TemporalMarker)
	assert.Equal(t, "new", byName["update"].Info)
	assert.Equal(t, 6.0, byName["append"].TemporalMarker)
}

func TestDeleteByName(t *testing.T) {
	objects := []core.AnnotatedObject{obj("A", 1.0), obj("B", 2.0), obj("C", 3.0)}

	out, removed := DeleteByName(objects, "B")
	assert.True(t, removed)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "C", out[1].Name)

	out, removed = DeleteByName(objects, "missing")
	assert.False(t, removed)
	assert.Len(t, out, 3)
}
