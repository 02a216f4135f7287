package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

type LogLevel string

const (
	FatalLevel    = "fatal"
	ErrorLevel    = "error"
	WarningLevel  = "warn"
	DebugLevel    = "debug"
	InfoLevel     = "info"
	TraceLevel    = "trace"
	DisabledLevel = "disabled"
)

var levelmap = map[LogLevel]int{
	TraceLevel:    5,
	DebugLevel:    4,
	InfoLevel:     3,
	WarningLevel:  2,
	ErrorLevel:    1,
	FatalLevel:    0,
	DisabledLevel: -1,
}

type logWrapper struct {
	log   *log.Logger
	Level LogLevel
}

func (l *logWrapper) Printf(level LogLevel, format string, args ...any) {
	if !ShouldLog(level, l.Level) {
		return
	}
	l.Println(level, fmt.Sprintf(format, args...))
}

func (l *logWrapper) Println(level LogLevel, args ...any) {
	if !ShouldLog(level, l.Level) {
		return
	}
	ts := time.Now().Local()
	timeStr := fmt.Sprintf("%s.%03d", ts.Format("2006-01-02 15:04:05"), ts.Nanosecond()/1000000)
	levelStr := fmt.Sprintf("- %5s -", level)
	allArgs := []any{timeStr, levelStr}
	allArgs = append(allArgs, args...)
	l.log.Println(allArgs...)
}

// Logger writes trace, debug and info records to one writer and
// warnings and errors to another.
type Logger struct {
	mu     sync.RWMutex
	stdout logWrapper
	stderr logWrapper
}

// New creates a logger writing to the given streams at the given level.
func New(stdout, stderr io.Writer, level LogLevel) *Logger {
	if !ValidLogLevel(level) {
		level = InfoLevel
	}
	return &Logger{
		stdout: logWrapper{log.New(stdout, "", 0), level},
		stderr: logWrapper{log.New(stderr, "", 0), level},
	}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return New(io.Discard, io.Discard, DisabledLevel)
}

var std = New(os.Stdout, os.Stderr, InfoLevel)

// Default returns the process-wide logger used by the package functions.
func Default() *Logger {
	return std
}

func (l *Logger) SetLevel(loglevel LogLevel) error {
	if !ValidLogLevel(loglevel) {
		return fmt.Errorf("No such log level %s", loglevel)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stderr.Level = loglevel
	l.stdout.Level = loglevel
	return nil
}

func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stdout.Level
}

func (l *Logger) out() *logWrapper {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w := l.stdout
	return &w
}

func (l *Logger) err() *logWrapper {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w := l.stderr
	return &w
}

func (l *Logger) Trace(args ...interface{}) { l.out().Println(TraceLevel, args...) }
func (l *Logger) Debug(args ...interface{}) { l.out().Println(DebugLevel, args...) }
func (l *Logger) Info(args ...interface{})  { l.out().Println(InfoLevel, args...) }
func (l *Logger) Warn(args ...interface{})  { l.err().Println(WarningLevel, args...) }
func (l *Logger) Error(args ...interface{}) { l.err().Println(ErrorLevel, args...) }

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.out().Printf(TraceLevel, format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.out().Printf(DebugLevel, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.out().Printf(InfoLevel, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.err().Printf(WarningLevel, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.err().Printf(ErrorLevel, format, args...)
}

func (l *Logger) Log(level LogLevel, msg string, args ...interface{}) {
	switch level {
	case TraceLevel, DebugLevel, InfoLevel:
		l.out().Printf(level, msg, args...)
	case WarningLevel, ErrorLevel, FatalLevel:
		l.err().Printf(level, msg, args...)
	}
}

func SetLevel(loglevel LogLevel) error {
	return std.SetLevel(loglevel)
}

func GetLevel() LogLevel {
	return std.GetLevel()
}

func ValidLogLevel(level LogLevel) bool {
	_, ok := levelmap[level]
	return ok
}

func ShouldLog(logLevel, enabled LogLevel) bool {
	if !ValidLogLevel(logLevel) || !ValidLogLevel(enabled) {
		return false
	}
	return levelmap[logLevel] <= levelmap[enabled]
}

func Log(level LogLevel, msg string, args ...interface{}) {
	std.Log(level, msg, args...)
}

func Trace(args ...interface{}) {
	std.Trace(args...)
}

func Debug(args ...interface{}) {
	std.Debug(args...)
}

func Info(args ...interface{}) {
	std.Info(args...)
}

func Warn(args ...interface{}) {
	std.Warn(args...)
}

func Error(args ...interface{}) {
	std.Error(args...)
}

func Fatal(args ...interface{}) {
	std.err().Println(FatalLevel, args...)
	debug.PrintStack()
	os.Exit(1)
}

func Tracef(format string, args ...interface{}) {
	std.Tracef(format, args...)
}

func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	std.err().Printf(FatalLevel, format, args...)
	debug.PrintStack()
	os.Exit(1)
}

type writeFunc func([]byte) (int, error)

func (fn writeFunc) Write(data []byte) (int, error) {
	return fn(data)
}

// NewLogWriter adapts the logger to an io.Writer, e.g. for grpclog or echo.
func (l *Logger) NewLogWriter(level LogLevel) io.Writer {
	return writeFunc(func(data []byte) (int, error) {
		l.Log(level, "%s", data)
		return len(data), nil
	})
}

func NewLogWriter(level LogLevel) io.Writer {
	return std.NewLogWriter(level)
}

func (l *Logger) DebugError(err error) {
	indent := 1

	l.Debug(err.Error())

	for {
		if err = errors.Unwrap(err); err == nil {
			break
		}

		l.Debugf("| %d: %s", indent, err.Error())
		indent += 1
	}
}

func DebugError(err error) {
	std.DebugError(err)
}
