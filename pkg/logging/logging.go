package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level defines the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger *slog.Logger

// Init initializes the package-level logger. The coordinator is a one-shot
// CLI process, not a long-running TUI, so there is only one output mode:
// structured text written straight to the given writer.
func Init(output io.Writer, level Level) {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	defaultLogger = slog.New(handler)
}

func init() {
	// Safe default so packages can log before main calls Init (e.g. in tests).
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func logInternal(level Level, subsystem string, err error, messageFmt string, args ...interface{}) {
	if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.slogLevel()) {
		return
	}
	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}
	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// Debug logs a debug message tagged with subsystem.
func Debug(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message tagged with subsystem.
func Info(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message tagged with subsystem.
func Warn(subsystem, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message tagged with subsystem.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// Coordinator emits a "[coordinator]: ..." line on stdout, per §6/§7 of the
// wire contract: pipeline-level events get a one-line user-visible trace
// distinct from the structured debug log above (per-target subprocess
// invocations use Target).
func Coordinator(messageFmt string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "[coordinator]: %s\n", fmt.Sprintf(messageFmt, args...))
}

// Target emits a "[target: <key>]: ..." line on stdout for a single target.
func Target(key, messageFmt string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "[target: %s]: %s\n", key, fmt.Sprintf(messageFmt, args...))
}

// TargetError emits a "[target: <key>]: Cannot ..." failure line on stderr.
func TargetError(key, messageFmt string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[target: %s]: Cannot %s\n", key, fmt.Sprintf(messageFmt, args...))
}
