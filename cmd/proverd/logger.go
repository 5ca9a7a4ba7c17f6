// logger.go - Structured logging for the prover daemon
package main

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the daemon's zerolog logger and its audit trail.
type Logger struct {
	zerolog.Logger
	audit   *zerolog.Logger
	closers []io.Closer
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// rotating opens a size-rotated log file.
func rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// auditWriter forwards warn-and-above events to the audit file.
type auditWriter struct {
	w io.Writer
}

func (a auditWriter) Write(p []byte) (int, error) { return a.w.Write(p) }

func (a auditWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.WarnLevel {
		return len(p), nil
	}
	return a.w.Write(p)
}

// NewLogger creates the daemon logger. console receives human-readable output; logFile and
// auditFile are optional.
func NewLogger(level string, console io.Writer, logFile, auditFile string) *Logger {
	l := &Logger{}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: "2006-01-02 15:04:05"}}
	if logFile != "" {
		f := rotating(logFile)
		l.closers = append(l.closers, f)
		writers = append(writers, f)
	}
	if auditFile != "" {
		f := rotating(auditFile)
		l.closers = append(l.closers, f)
		writers = append(writers, auditWriter{w: f})

		audit := zerolog.New(f).With().Timestamp().Str("stream", "audit").Logger()
		l.audit = &audit
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().Timestamp().Str("service", serviceName).Logger()
	return l
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Audit records an audit event. It is a no-op without an audit file.
func (l *Logger) Audit(event string, details map[string]interface{}) {
	if l.audit == nil {
		return
	}
	l.audit.Log().Str("event", event).Fields(details).Msg("audit")
}

// defaultConsole is where the daemon writes human-readable logs.
var defaultConsole io.Writer = os.Stdout
