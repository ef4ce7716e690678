// Package logger is the levelled logger shared by the optimizer and the CLI.
// Workers log concurrently, so every Logger serializes its writes.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a message; a logger prints messages at or
// below its own level.
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	// LogLevelInfo is enabled by --verbose.
	LogLevelInfo
	// LogLevelDebug is enabled by --debug.
	LogLevelDebug
)

var levelNames = [...]string{"SILENT", "ERROR", "WARN", "INFO", "DEBUG"}

func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name such as "warn" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	for i, levelName := range levelNames {
		if strings.EqualFold(levelName, name) {
			return LogLevel(i), nil
		}
	}
	return LogLevelWarn, fmt.Errorf("unknown log level %q", name)
}

// Logger writes "[15:04:05.000] LEVEL: message" lines.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	out   io.Writer
	now   func() time.Time
	buf   []byte
}

// New returns a logger writing to w.
func New(w io.Writer, level LogLevel) *Logger {
	return &Logger{level: level, out: w, now: time.Now}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput redirects the logger and returns the previous writer.
func (l *Logger) SetOutput(w io.Writer) io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.out
	l.out = w
	return prev
}

// Enabled reports whether a message at level would be written. Use it to
// skip building expensive arguments.
func (l *Logger) Enabled(level LogLevel) bool {
	return level != LogLevelSilent && level <= l.Level()
}

// Logf formats and writes one line at level.
func (l *Logger) Logf(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level == LogLevelSilent || level > l.level {
		return
	}

	l.buf = l.now().AppendFormat(l.buf[:0], "[15:04:05.000] ")
	l.buf = append(l.buf, level.String()...)
	l.buf = append(l.buf, ": "...)
	l.buf = fmt.Appendf(l.buf, format, args...)
	if l.buf[len(l.buf)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}
	l.out.Write(l.buf)
}

var std = New(os.Stderr, LogLevelWarn)

// SetLogLevel sets the level of the process wide logger.
func SetLogLevel(level LogLevel) { std.SetLevel(level) }

func SetOutput(w io.Writer) io.Writer { return std.SetOutput(w) }

func Enabled(level LogLevel) bool { return std.Enabled(level) }

func Debug(format string, args ...interface{}) { std.Logf(LogLevelDebug, format, args...) }

func Info(format string, args ...interface{}) { std.Logf(LogLevelInfo, format, args...) }

func Warn(format string, args ...interface{}) { std.Logf(LogLevelWarn, format, args...) }

func Error(format string, args ...interface{}) { std.Logf(LogLevelError, format, args...) }
