// Package xlog is a minimal structured wrapper around the standard
// library logger, in the spirit of the microsecond-flagged loggers the
// surrounding tooling configures for timing-sensitive output.
package xlog

import (
	"log"
	"os"
	"time"
)

// Logger tags every line with a component name and, optionally, an
// operator-timing duration.
type Logger struct {
	std *log.Logger
	tag string
}

// New returns a Logger that prefixes every line with tag.
func New(tag string) *Logger {
	return &Logger{
		std: log.New(os.Stderr, "", log.Lmicroseconds),
		tag: tag,
	}
}

// Printf logs a formatted message under the logger's tag.
func (l *Logger) Printf(format string, args ...any) {
	l.std.Printf("["+l.tag+"] "+format, args...)
}

// Phase logs how long a named evaluation phase took.
func (l *Logger) Phase(name string, d time.Duration) {
	l.std.Printf("[%s] %-6s %v", l.tag, name, d)
}
