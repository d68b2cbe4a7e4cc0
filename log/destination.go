package log

import (
	"io"
	"os"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Destination opens log output by name: "stderr", "stdout", or a file path.
// File destinations are size-rotated.
func Destination(dest string) (io.Writer, error) {
	switch strings.ToLower(dest) {
	case "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	return &lumberjack.Logger{
		Filename:   dest,
		MaxSize:    100, // MiB
		MaxBackups: 3,
	}, nil
}
