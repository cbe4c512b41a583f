// Package calog provides the leveled logging free functions used across the
// pipeline stages, in the shape of rclone's fs.Debugf/fs.Infof/fs.Errorf.
package calog

import (
	"fmt"
	"log"
	"os"
)

// Level controls which messages reach the log writer.
type Level int

// Log levels, lowest to highest severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	std      = log.New(os.Stderr, "", log.LstdFlags)
	minLevel = LevelInfo
)

// SetLevel sets the minimum level that will be emitted. Tests that want
// quiet output set this to LevelError; the CLI raises it to LevelDebug
// under --verbose.
func SetLevel(l Level) {
	minLevel = l
}

func subjectPrefix(subject any) string {
	if subject == nil {
		return ""
	}
	return fmt.Sprintf("%v: ", subject)
}

func emit(l Level, prefix string, subject any, format string, args ...any) {
	if l < minLevel {
		return
	}
	std.Printf("%s%s%s", prefix, subjectPrefix(subject), fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message about subject (may be nil).
func Debugf(subject any, format string, args ...any) {
	emit(LevelDebug, "DEBUG: ", subject, format, args...)
}

// Infof logs an info-level message about subject (may be nil).
func Infof(subject any, format string, args ...any) {
	emit(LevelInfo, "INFO: ", subject, format, args...)
}

// Errorf logs an error-level message about subject (may be nil).
func Errorf(subject any, format string, args ...any) {
	emit(LevelError, "ERROR: ", subject, format, args...)
}
