package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fatih/color"
)

var (
	infoTag   = color.New(color.FgGreen).Sprint("INFO")
	warnTag   = color.New(color.FgYellow).Sprint("WARN")
	errorTag  = color.New(color.FgRed).Sprint("ERROR")
	noteTag   = color.New(color.FgBlue).Sprint("NOTE")
	detailTag = color.New(color.FgCyan).Sprint("DETAIL")

	verbose atomic.Bool
)

// SetVerbose toggles Detailf output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether Detailf output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	log.Printf("%s %s", infoTag, fmt.Sprintf(format, args...))
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	log.Printf("%s %s", warnTag, fmt.Sprintf(format, args...))
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	log.Printf("%s %s", errorTag, fmt.Sprintf(format, args...))
}

// Highlightf logs a highlighted message.
func Highlightf(format string, args ...any) {
	log.Printf("%s %s", noteTag, fmt.Sprintf(format, args...))
}

// Detailf logs a message only when verbose output is enabled.
func Detailf(format string, args ...any) {
	if !verbose.Load() {
		return
	}
	log.Printf("%s %s", detailTag, fmt.Sprintf(format, args...))
}

// TeeLogFile mirrors log output to path in addition to stdout. An empty path
// leaves the output untouched.
func TeeLogFile(path string) (io.Closer, error) {
	if path == "" {
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
