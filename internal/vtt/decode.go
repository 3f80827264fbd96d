package vtt

import (
	"bufio"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/vannot/vannot/pkg/core"
)

// ErrNotContainer is returned when the text does not open with the container
// marker line. Everything past the marker is handled leniently; a missing
// marker means the caller handed us something that was never a container.
var ErrNotContainer = errors.New("text is not an annotation container")

// parseState enumerates the decoder's line-machine states.
type parseState int

const (
	stateIdle parseState = iota // before the marker line
	stateHeader
	stateObject  // accumulating one object's payload lines
	stateTrailer // past the summary cue, nothing left to parse
)

// maxPayloadLine guards the scanner against pathological single-line input.
const maxPayloadLine = 4 * 1024 * 1024

// objectTag reports whether a line is an object block tag ("object<N>").
func objectTag(line string) bool {
	rest, ok := strings.CutPrefix(line, "object")
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// Decode parses container text back into its object list and header.
// Malformed object blocks are skipped with a warning; a declared-count
// mismatch is logged but never fatal. Zero objects is a valid container.
func (c *Codec) Decode(text string) ([]core.AnnotatedObject, core.Header, error) {
	var (
		header  core.Header
		objects = []core.AnnotatedObject{}
		state   = stateIdle
		payload []string
		skipped int
	)

	flush := func() {
		if len(payload) == 0 {
			return
		}
		raw := strings.Join(payload, "\n")
		payload = nil

		var obj core.AnnotatedObject
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			skipped++
			c.logger.Warn("Skipping malformed object block",
				"block", len(objects)+skipped,
				"error", err)
			return
		}
		// a JSON null polygon and an absent polygon are the same thing
		if string(obj.Polygon) == "null" {
			obj.Polygon = nil
		}
		objects = append(objects, obj)
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), maxPayloadLine)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch state {
		case stateIdle:
			if strings.TrimSpace(line) == "" {
				continue
			}
			if line != MarkerLine {
				return nil, header, ErrNotContainer
			}
			state = stateHeader

		case stateHeader:
			switch {
			case strings.HasPrefix(line, noteSource):
				header.VideoName = strings.TrimPrefix(line, noteSource)
			case strings.HasPrefix(line, noteGenerated):
				stamp := strings.TrimPrefix(line, noteGenerated)
				t, err := time.Parse(time.RFC3339, stamp)
				if err != nil {
					c.logger.Warn("Unparsable generation timestamp", "value", stamp)
				} else {
					header.GeneratedAt = t
				}
			case strings.HasPrefix(line, noteObjects):
				count, err := strconv.Atoi(strings.TrimPrefix(line, noteObjects))
				if err != nil {
					c.logger.Warn("Unparsable object count",
						"value", strings.TrimPrefix(line, noteObjects))
				} else {
					header.ObjectCount = count
				}
			case objectTag(line):
				state = stateObject
			case strings.Contains(line, "-->"):
				state = stateTrailer
			}

		case stateObject:
			switch {
			case strings.TrimSpace(line) == "":
				flush()
				state = stateHeader
			case objectTag(line):
				// missing blank line between blocks
				flush()
			case strings.Contains(line, "-->"):
				flush()
				state = stateTrailer
			default:
				payload = append(payload, line)
			}

		case stateTrailer:
			// human-readable summary, not authoritative
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, header, err
	}
	if state == stateIdle {
		return nil, header, ErrNotContainer
	}
	flush()

	if header.ObjectCount != len(objects) {
		c.logger.Warn("Declared object count does not match parsed blocks",
			"declared", header.ObjectCount,
			"parsed", len(objects),
			"skipped", skipped)
	}

	return objects, header, nil
}
