// Package project builds the project export: a JSON snapshot of a video and
// its annotated objects that the browser UI can re-import to restore a
// session. The export is a convenience view; the VTT container stays the
// source of truth.
package project

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vannot/vannot/pkg/core"
)

// FormatVersion is bumped whenever the export layout changes.
const FormatVersion = 1

// VideoJSON describes the video a project belongs to.
type VideoJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	FileName    string    `json:"fileName"`
	AnnotatedAt time.Time `json:"annotatedAt"`
}

// Export is the full project file layout.
type Export struct {
	Version int                    `json:"version"`
	Video   VideoJSON              `json:"video"`
	Objects []core.AnnotatedObject `json:"objects"`
}

// Build assembles an export from the video metadata and its decoded objects.
func Build(info core.VideoInfo, header core.Header, objects []core.AnnotatedObject) Export {
	if objects == nil {
		objects = make([]core.AnnotatedObject, 0)
	}
	return Export{
		Version: FormatVersion,
		Video: VideoJSON{
			ID:          info.ID,
			Name:        info.Name,
			FileName:    info.FileName,
			AnnotatedAt: header.GeneratedAt,
		},
		Objects: objects,
	}
}

// Encode marshals the export, gzipping when compress is set.
func Encode(export Export, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("encoding project: %w", err)
	}

	if !compress {
		return buf.Bytes(), nil
	}

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	if _, err := gz.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("compressing project: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	return gzBuf.Bytes(), nil
}

// Decode parses an export, transparently handling gzipped payloads.
func Decode(data []byte) (Export, error) {
	var export Export

	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return export, fmt.Errorf("opening gzip reader: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return export, fmt.Errorf("decompressing project: %w", err)
		}
	}

	if err := json.Unmarshal(data, &export); err != nil {
		return export, fmt.Errorf("parsing project: %w", err)
	}
	if export.Version != FormatVersion {
		return export, fmt.Errorf("unsupported project version %d", export.Version)
	}
	return export, nil
}
