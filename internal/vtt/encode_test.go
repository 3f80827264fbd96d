package vtt

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/pkg/core"
)

func newTestCodec() *Codec {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, token.NewSequence("code"))
}

func testHeader() core.Header {
	return core.Header{
		VideoName:   "factory_line.mp4",
		GeneratedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func TestEncodeLayout(t *testing.T) {
	c := newTestCodec()

	objects := []core.AnnotatedObject{
		{
			Name:           "Object(1)",
			TemporalMarker: 5,
			Code:           "C1",
			Category:       core.CategoryGTIN,
			Domain:         "http://x.com",
			Info:           "first box",
			Geometry: &core.Geometry{
				Rectangle: &core.Rectangle{
					Start: core.Point{X: 10, Y: 20},
					End:   core.Point{X: 110, Y: 220},
				},
			},
		},
	}

	text, err := c.Encode(objects, testHeader())
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	require.GreaterOrEqual(t, len(lines), 10)
	assert.Equal(t, MarkerLine, lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "NOTE SOURCE factory_line.mp4", lines[2])
	assert.Equal(t, "NOTE GENERATED 2026-03-15T00:09:26+09:00", lines[3])
	assert.Equal(t, "NOTE OBJECTS 1", lines[4])
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "object1", lines[6])
	assert.True(t, strings.HasPrefix(lines[7], `{"name":"Object(1)"`))
	assert.Equal(t, "", lines[8])
	assert.Equal(t, trailerTiming, lines[9])
	assert.Equal(t, "1 objects annotated", lines[10])
}

func TestEncodeDerivedLinkRecomputed(t *testing.T) {
	c := newTestCodec()

	objects := []core.AnnotatedObject{{
		Name:           "box",
		TemporalMarker: 1,
		Code:           "C1",
		Category:       core.CategoryGTIN,
		Domain:         "http://x.com",
		DerivedLink:    "http://stale.example/99/old", // must be ignored
	}}

	text, err := c.Encode(objects, testHeader())
	require.NoError(t, err)
	assert.Contains(t, text, `"link":"http://x.com/01/C1"`)
	assert.NotContains(t, text, "stale.example")
}

func TestEncodeDefaults(t *testing.T) {
	c := newTestCodec()

	objects := []core.AnnotatedObject{{
		Name:           "unlabelled",
		TemporalMarker: 2.5,
	}}

	text, err := c.Encode(objects, testHeader())
	require.NoError(t, err)
	assert.Contains(t, text, `"category":"기타"`)
	assert.Contains(t, text, `"code":"code-1"`)
	assert.Contains(t, text, `"domain":"https://id.gs1.org"`)
	assert.Contains(t, text, `"link":"https://id.gs1.org/00/code-1"`)
}

func TestEncodeNonASCII(t *testing.T) {
	c := newTestCodec()

	objects := []core.AnnotatedObject{{
		Name:           "상자(1)",
		TemporalMarker: 3,
		Code:           "C9",
		Category:       core.CategoryOther,
		Domain:         "http://x.com",
		Info:           "컨베이어 위의 상자 & 라벨",
	}}

	text, err := c.Encode(objects, testHeader())
	require.NoError(t, err)
	// non-Latin text is a primary use case and must stay unescaped
	assert.Contains(t, text, `"name":"상자(1)"`)
	assert.Contains(t, text, "컨베이어 위의 상자 & 라벨")
}

func TestEncodeEmptyList(t *testing.T) {
	c := newTestCodec()

	text, err := c.Encode(nil, testHeader())
	require.NoError(t, err)
	assert.Contains(t, text, "NOTE OBJECTS 0")
	assert.Contains(t, text, "0 objects annotated")
}

func TestEncodePolygonPassThrough(t *testing.T) {
	c := newTestCodec()

	objects := []core.AnnotatedObject{{
		Name:           "poly",
		TemporalMarker: 1,
		Code:           "C1",
		Category:       core.CategoryOther,
		Domain:         "http://x.com",
		Polygon:        json.RawMessage(`{"vertices":[[0,0],[1,1],[0,1]]}`),
	}}

	text, err := c.Encode(objects, testHeader())
	require.NoError(t, err)
	assert.Contains(t, text, `"polygon":{"vertices":[[0,0],[1,1],[0,1]]}`)

	// absent polygon encodes as null
	objects[0].Polygon = nil
	text, err = c.Encode(objects, testHeader())
	require.NoError(t, err)
	assert.Contains(t, text, `"polygon":null`)
}
