// Package vtt implements the WebVTT object-annotation container codec:
// an ordered list of annotated objects serialized into a subtitle-compatible
// text document with embedded JSON blocks, and parsed back out again.
package vtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/pkg/core"
)

// MarkerLine identifies the container format. Decode rejects text that does
// not open with it.
const MarkerLine = "WEBVTT - vannot object annotations"

// Header note prefixes.
const (
	noteSource    = "NOTE SOURCE "
	noteGenerated = "NOTE GENERATED "
	noteObjects   = "NOTE OBJECTS "
)

// trailerTiming is the pseudo-cue introducing the human-readable summary.
// It carries no machine state; legacy subtitle viewers show it as a caption.
const trailerTiming = "00:00:00.000 --> 00:00:05.000"

// kst is the fixed offset the original annotation tool stamped containers
// with. Kept so regenerated files diff cleanly against existing ones.
var kst = time.FixedZone("KST", 9*60*60)

// Codec encodes and decodes annotation containers. Pure except for the
// injected code generator and the generation timestamp.
type Codec struct {
	logger *slog.Logger
	tokens token.Generator
	loc    *time.Location
}

// New creates a codec with only a logger and code-generator dependency.
func New(logger *slog.Logger, tokens token.Generator) *Codec {
	return &Codec{
		logger: logger,
		tokens: tokens,
		loc:    kst,
	}
}

// SetLocation overrides the timezone used for the generation timestamp.
func (c *Codec) SetLocation(loc *time.Location) {
	if loc != nil {
		c.loc = loc
	}
}

// normalize applies encode-time defaults to a copy of obj and recomputes the
// derived link. The same defaults apply on first encode and re-encode so
// repeated round trips are stable.
func (c *Codec) normalize(obj core.AnnotatedObject) core.AnnotatedObject {
	obj.Category = core.NormalizeCategory(obj.Category)
	if obj.Code == "" {
		obj.Code = c.tokens.NewCode()
	}
	if obj.Domain == "" {
		obj.Domain = core.DefaultDomain
	}
	obj.DerivedLink = core.DeriveLink(obj.Domain, obj.Category, obj.Code)
	return obj
}

// marshalPayload marshals without HTML escaping so URLs and non-Latin text
// stay readable in the container.
func marshalPayload(obj core.AnnotatedObject) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode serializes the object list into container text. header.VideoName is
// written as the source; header.GeneratedAt defaults to now; the object count
// is always the actual list length regardless of header.ObjectCount.
func (c *Codec) Encode(objects []core.AnnotatedObject, header core.Header) (string, error) {
	generated := header.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	var b strings.Builder
	b.WriteString(MarkerLine)
	b.WriteString("\n\n")
	b.WriteString(noteSource)
	b.WriteString(header.VideoName)
	b.WriteByte('\n')
	b.WriteString(noteGenerated)
	b.WriteString(generated.In(c.loc).Format(time.RFC3339))
	b.WriteByte('\n')
	b.WriteString(noteObjects)
	fmt.Fprintf(&b, "%d", len(objects))
	b.WriteString("\n\n")

	for i, obj := range objects {
		payload, err := marshalPayload(c.normalize(obj))
		if err != nil {
			// Only reachable with a non-JSON-encodable Polygon; that is a
			// programming error on the caller's side, not container data.
			return "", fmt.Errorf("encoding object %d (%s): %w", i+1, obj.Name, err)
		}
		fmt.Fprintf(&b, "object%d\n", i+1)
		b.Write(payload)
		b.WriteString("\n\n")
	}

	b.WriteString(trailerTiming)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%d objects annotated\n", len(objects))

	return b.String(), nil
}
