// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelTags = map[LogLevel]string{
	DEBUG: "[DEBUG]",
	INFO:  "[INFO] ",
	WARN:  "[WARN] ",
	ERROR: "[ERROR]",
}

// ANSI color per level, console only
var levelColors = map[LogLevel]string{
	DEBUG: "\033[90m",
	INFO:  "\033[0m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const colorReset = "\033[0m"

type sink struct {
	w     io.Writer
	color bool
}

var (
	mu       sync.Mutex
	sinks    = []sink{{w: os.Stdout, color: true}}
	logFile  *os.File
	minLevel = DEBUG
)

// Init configures the logger outputs. An empty filename logs to console only;
// console=false with a filename logs to the file only.
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	sinks = sinks[:0]
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		sinks = append(sinks, sink{w: f})
	}
	if console {
		sinks = append(sinks, sink{w: os.Stdout, color: true})
	}
	if len(sinks) == 0 {
		return fmt.Errorf("no output destination specified")
	}
	return nil
}

// SetLevel sets the minimum level; messages below it are dropped.
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// Close closes the log file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return
	}
	logFile.Close()
	logFile = nil
	kept := sinks[:0]
	for _, s := range sinks {
		if s.color {
			kept = append(kept, s)
		}
	}
	sinks = kept
}

func output(level LogLevel, msg string) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	if !ok {
		file, line = "???", 0
	}
	loc := fmt.Sprintf("%s:%d", filepath.Base(file), line)
	ts := time.Now().Format("2006/01/02 15:04:05")

	for _, s := range sinks {
		if s.color {
			fmt.Fprintf(s.w, "%s%s%s %s %s: %s\n", levelColors[level], levelTags[level], colorReset, ts, loc, msg)
		} else {
			fmt.Fprintf(s.w, "%s %s %s: %s\n", levelTags[level], ts, loc, msg)
		}
	}
}

func logAt(level LogLevel, v ...interface{}) {
	output(level, fmt.Sprint(v...))
}

func logfAt(level LogLevel, format string, v ...interface{}) {
	output(level, fmt.Sprintf(format, v...))
}

// Debug logs a debug message
func Debug(v ...interface{}) { logAt(DEBUG, v...) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { logfAt(DEBUG, format, v...) }

// Info logs an info message
func Info(v ...interface{}) { logAt(INFO, v...) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { logfAt(INFO, format, v...) }

// Warn logs a warning message
func Warn(v ...interface{}) { logAt(WARN, v...) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { logfAt(WARN, format, v...) }

// Error logs an error message
func Error(v ...interface{}) { logAt(ERROR, v...) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { logfAt(ERROR, format, v...) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	logAt(ERROR, v...)
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	logfAt(ERROR, format, v...)
	os.Exit(1)
}
