// Package logging gates the stdlib logger's verbosity behind LOG_LEVEL.
// It is not a logging framework: every call site still writes plain
// log.Printf-style lines, emoji-prefixed the way the teacher does it;
// this package only decides whether a given level's line gets printed.
package logging

import (
	"log"
	"strings"
)

// Level is an ordered verbosity tier, lowest first.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger filters log.Printf calls below a configured minimum level.
type Logger struct {
	min Level
}

// New builds a Logger from a LOG_LEVEL string such as "debug" or "info".
// Unrecognized values fall back to info, matching the teacher's
// tolerant-default style elsewhere in config handling.
func New(levelName string) *Logger {
	return &Logger{min: parseLevel(levelName)}
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	log.Printf(format, args...)
}
