// Package logging provides the engine's ambient logging, matching the
// teacher's ad hoc use of the standard log package rather than pulling in
// a structured-logging library for this small a surface.
package logging

import (
	"log"
	"os"
)

// Level selects how noisy the engine is. Off is silent; Debug enables the
// messages passed to Debugf and Completion.
type Level int

const (
	Off Level = iota
	Debug
)

// Logger is the engine's logging sink.
type Logger struct {
	level Level
	l     *log.Logger
}

// New returns a Logger at the given level, writing to stderr.
func New(level Level) *Logger {
	return &Logger{level: level, l: log.New(os.Stderr, "striper: ", log.LstdFlags)}
}

// Debugf logs a debug-level message if the logger's level allows it.
func (lg *Logger) Debugf(format string, args ...any) {
	if lg == nil || lg.level < Debug {
		return
	}
	lg.l.Printf(format, args...)
}

// Completion logs the outcome of the async op identified by opID. The
// engine passes an op's aggregated result, not one call per store
// completion.
func (lg *Logger) Completion(opID, description string, err error) {
	if lg == nil || lg.level < Debug {
		return
	}
	if err != nil {
		lg.l.Printf("op %s: %s: error: %v", opID, description, err)
		return
	}
	lg.l.Printf("op %s: %s: ok", opID, description)
}
