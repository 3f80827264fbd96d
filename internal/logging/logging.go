package logging

import (
	"io"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileWriter returns a size-rotated log writer under logsDir.
// Rotation keeps the per-video-project data directories free of
// unbounded log growth on long-running annotation servers.
func FileWriter(logsDir, name string) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logsDir, name+".log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}
