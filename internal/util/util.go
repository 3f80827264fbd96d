// Package util provides common helpers used across the vannot server.
package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// unsafeChars are characters that break directory names or URLs when they
// appear in uploaded video filenames.
const unsafeChars = ` :/\?%*|"<>#&`

// SanitizeName makes an uploaded filename safe to use as a directory name.
// Unsafe characters become underscores; the base name is trimmed of dots so
// it cannot masquerade as a relative path. Non-ASCII text passes through
// untouched; Korean filenames are the common case, not the exception.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafeChars, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		out = "video"
	}
	return out
}

// SplitExt splits a filename into base and extension ("clip.mp4" → "clip", ".mp4").
func SplitExt(name string) (base, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// NumberedName returns the nth alternate for a taken name:
// "clip.mp4" → "clip(1).mp4", "clip(2).mp4", ...
func NumberedName(name string, n int) string {
	base, ext := SplitExt(name)
	return fmt.Sprintf("%s(%d)%s", base, n, ext)
}
