// Package logging is a small levelled logger with optional file rotation.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Logger. The zero value logs every level to stdout.
type Options struct {
	Name    string
	Level   Level
	File    string
	JSON    bool
	NoColor bool
	// Quiet disables terminal output; only File receives entries.
	Quiet    bool
	Rotation Rotation
}

// Rotation mirrors the lumberjack settings used for File.
type Rotation struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

var defaultRotation = Rotation{MaxSize: 64, MaxBackups: 3, MaxAge: 14}

type Logger struct {
	mu     *sync.Mutex
	writer io.Writer
	closer io.Closer

	name       string
	level      Level
	json       bool
	color      bool
	timeFormat string
	exit       func(int)
}

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service,omitempty"`
	Message   string `json:"message"`
}

func New(opts Options) *Logger {
	var writers []io.Writer
	var closer io.Closer

	if !opts.Quiet {
		writers = append(writers, os.Stdout)
	}
	if opts.File != "" {
		rot := opts.Rotation
		if rot == (Rotation{}) {
			rot = defaultRotation
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    rot.MaxSize,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAge,
			Compress:   rot.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	return &Logger{
		mu:         &sync.Mutex{},
		writer:     io.MultiWriter(writers...),
		closer:     closer,
		name:       opts.Name,
		level:      opts.Level,
		json:       opts.JSON,
		color:      !opts.Quiet && !opts.NoColor && opts.File == "" && !opts.JSON,
		timeFormat: "2006-01-02 15:04:05",
		exit:       os.Exit,
	}
}

// NewWriter logs to w without colour. Used by tests and by callers that
// already own an output stream.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		writer:     w,
		level:      level,
		timeFormat: "2006-01-02 15:04:05",
		exit:       os.Exit,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, Fatal+1)
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if l == nil || level < l.level {
		return
	}

	timestamp := time.Now().Format(l.timeFormat)
	formatted := fmt.Sprintf(msg, args...)

	l.mu.Lock()
	if l.json {
		b, _ := json.Marshal(logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Service:   l.name,
			Message:   formatted,
		})
		fmt.Fprintf(l.writer, "%s\n", b)
	} else {
		prefix := fmt.Sprintf("[%s] %-5s", timestamp, level)
		if l.name != "" {
			prefix = fmt.Sprintf("%s [%s]", prefix, l.name)
		}
		if l.color {
			fmt.Fprintf(l.writer, "%s%s %s\033[0m\n", color(level), prefix, formatted)
		} else {
			fmt.Fprintf(l.writer, "%s %s\n", prefix, formatted)
		}
	}
	l.mu.Unlock()

	if level == Fatal {
		l.exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(Debug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(Info, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(Warn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(Error, msg, args...) }

// Fatal logs and exits the process with status 1.
func (l *Logger) Fatal(msg string, args ...any) { l.log(Fatal, msg, args...) }

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

// Named returns a child logger that shares the parent's writer.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	if l.name != "" {
		child.name = l.name + "/" + name
	} else {
		child.name = name
	}
	return &child
}

// Close flushes and closes the rotating log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
