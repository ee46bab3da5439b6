package log

import (
	stdlog "log"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusWriter forwards each written line to a logrus entry at a fixed level
type LogrusWriter struct {
	*logrus.Entry // Embed logrus Entry
	level         logrus.Level
}

// NewLogrusWriter creates a writer logging at level
func NewLogrusWriter(entry *logrus.Entry, level logrus.Level) *LogrusWriter {
	return &LogrusWriter{Entry: entry, level: level}
}

// Write logs p with trailing newlines removed; empty writes are dropped
func (w *LogrusWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if msg != "" {
		w.Entry.Log(w.level, msg)
	}
	return len(p), nil
}

// NewStdLogger returns a standard library logger backed by entry, for
// libraries that only accept *log.Logger
func NewStdLogger(entry *logrus.Entry, level logrus.Level) *stdlog.Logger {
	return stdlog.New(NewLogrusWriter(entry, level), "", 0)
}
