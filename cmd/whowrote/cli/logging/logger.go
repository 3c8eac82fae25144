// Package logging provides structured JSON logging for whowrote using slog.
//
// Hooks run as short-lived processes, so every invocation gets a run ID and
// appends to a single log file under .whowrote/logs:
//
//	if err := logging.Init(runID); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	ctx = logging.WithComponent(ctx, "capture")
//	ctx = logging.WithProvider(ctx, "cursor")
//	logging.Debug(ctx, "edit discarded", slog.String("file", path))
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
	"github.com/whowrote/cli/cmd/whowrote/cli/validation"
)

// LogLevelEnvVar is the environment variable that controls log level.
const LogLevelEnvVar = "WHOWROTE_LOG_LEVEL"

// LogFileName is the file under paths.LogsDir that all runs append to.
const LogFileName = "whowrote.log"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer

	// currentRunID is attached to every record written after Init.
	currentRunID string

	// mu protects logger, logFile, logBufWriter, and currentRunID
	mu sync.RWMutex

	// logLevelGetter reads the level from settings when the env var is unset.
	logLevelGetter func() string
)

// SetLogLevelGetter sets a callback used to read the log level from settings.
// The callback is only used if WHOWROTE_LOG_LEVEL is not set.
func SetLogLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	logLevelGetter = getter
}

// Init initializes the logger for one CLI run, resolving the repository root
// from the working directory. Falls back to stderr when the log file cannot be
// opened.
func Init(runID string) error {
	root, err := paths.RepoRoot()
	if err != nil {
		root = "."
	}
	return InitAt(root, runID)
}

// InitAt is Init with an explicit repository root.
func InitAt(root, runID string) error {
	if err := validation.ValidateRunID(runID); err != nil {
		return fmt.Errorf("invalid run ID for logging: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && logLevelGetter != nil {
		levelStr = logLevelGetter()
	}
	level := parseLogLevel(levelStr)
	if levelStr != "" && !isValidLogLevel(levelStr) {
		fmt.Fprintf(os.Stderr, "[whowrote] Warning: invalid log level %q, defaulting to INFO\n", levelStr)
	}

	currentRunID = runID

	logsPath := filepath.Join(root, paths.LogsDir)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	f, err := os.OpenFile(filepath.Join(logsPath, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the log file if one is open.
// Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	currentRunID = ""
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// resetLogger resets the logger to nil (for testing).
func resetLogger() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	logger = nil
	currentRunID = ""
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func getRunID() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentRunID
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel parses a log level string. Empty or invalid values yield INFO.
func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isValidLogLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		return true
	default:
		return false
	}
}

// Debug logs at DEBUG level with context values automatically extracted.
func Debug(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at INFO level with context values automatically extracted.
func Info(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at WARN level with context values automatically extracted.
func Warn(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at ERROR level with context values automatically extracted.
func Error(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelError, msg, attrs...)
}

// LogDuration logs msg with a duration_ms attribute measured from start.
// Designed for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelDebug, "commit processed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)
	log(ctx, level, msg, allAttrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var allAttrs []any
	if runID := getRunID(); runID != "" {
		allAttrs = append(allAttrs, slog.String("run_id", runID))
	}
	for _, a := range attrsFromContext(ctx) {
		allAttrs = append(allAttrs, a)
	}
	allAttrs = append(allAttrs, attrs...)

	// Context values are already extracted as attributes.
	l.Log(context.Background(), level, msg, allAttrs...)
}

func attrsFromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, k := range []struct {
		key  contextKey
		name string
	}{
		{componentKey, "component"},
		{providerKey, "provider"},
		{sessionIDKey, "session_id"},
		{commitKey, "commit"},
	} {
		if s, ok := ctx.Value(k.key).(string); ok && s != "" {
			attrs = append(attrs, slog.String(k.name, s))
		}
	}
	return attrs
}
