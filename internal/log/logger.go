package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	console "github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
)

// Output formats accepted by Setup.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	once   sync.Once
	logger *slog.Logger
	file   *os.File
)

// Options controls how the process logger is built.
type Options struct {
	Level  string
	Format string
	// File, when set, receives a JSON copy of every record.
	File string
}

// Setup initializes the global logger. Only the first call has any effect.
// An unknown level falls back to INFO, an unknown format falls back to JSON.
func Setup(opts Options) error {
	var setupErr error
	once.Do(func() {
		l, f, err := build(opts, os.Stdout, os.Stderr)
		if err != nil {
			setupErr = err
			l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(opts.Level)}))
		}
		logger = l
		file = f
		slog.SetDefault(logger)
	})
	return setupErr
}

func build(opts Options, stdout, stderr io.Writer) (*slog.Logger, *os.File, error) {
	level := ParseLevel(opts.Level)

	var primary slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case FormatConsole:
		primary = console.NewHandler(stderr, &console.HandlerOptions{Level: level})
	default:
		primary = slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level})
	}

	if opts.File == "" {
		return slog.New(primary), nil, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %q: %w", opts.File, err)
	}
	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(primary, fileHandler)), f, nil
}

// ParseLevel maps a level name to a slog level, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close flushes and closes the log file, if one was opened.
func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		_ = Setup(Options{Level: "INFO"})
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithConversation scopes l to one conversation. A nil l uses the global logger.
func WithConversation(l *slog.Logger, id string) *slog.Logger {
	if l == nil {
		l = Get()
	}
	return l.With(slog.String("conversation_id", id))
}
