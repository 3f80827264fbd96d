package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"my clip.mp4", "my_clip.mp4"},
		{"a:b?c.mp4", "a_b_c.mp4"},
		{"../../etc/passwd", "passwd"},
		{"..", "video"},
		{"", "video"},
		{"공장 라인 영상.mp4", "공장_라인_영상.mp4"},
		{"50% off.mp4", "50__off.mp4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}

func TestSplitExt(t *testing.T) {
	base, ext := SplitExt("clip.mp4")
	assert.Equal(t, "clip", base)
	assert.Equal(t, ".mp4", ext)

	base, ext = SplitExt("noext")
	assert.Equal(t, "noext", base)
	assert.Equal(t, "", ext)
}

func TestNumberedName(t *testing.T) {
	assert.Equal(t, "clip(1).mp4", NumberedName("clip.mp4", 1))
	assert.Equal(t, "clip(7).mp4", NumberedName("clip.mp4", 7))
	assert.Equal(t, "noext(2)", NumberedName("noext", 2))
}
