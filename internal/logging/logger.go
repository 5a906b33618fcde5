package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lector/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	Stream           *StreamHub
	SessionID        string
}

// New builds a slog logger with console or JSON output. Unknown levels fall
// back to info, and unknown formats are rejected. When opts.Stream is set,
// every record is also published to the hub for live consumers.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	lvl := &slog.LevelVar{}
	lvl.Set(level)
	addSource := opts.Development || level <= slog.LevelDebug

	outPaths := defaultSlice(opts.OutputPaths, []string{"stdout"})
	out, err := openWriters(outPaths)
	if err != nil {
		return nil, err
	}
	handler, err := buildHandler(opts.Format, out, lvl, addSource)
	if err != nil {
		return nil, err
	}

	if errPaths := opts.ErrorOutputPaths; len(errPaths) > 0 {
		errOut, err := openWriters(errPaths)
		if err != nil {
			return nil, err
		}
		errLvl := &slog.LevelVar{}
		errLvl.Set(slog.LevelError)
		errHandler, err := buildHandler(opts.Format, errOut, errLvl, addSource)
		if err != nil {
			return nil, err
		}
		handler = newFanoutHandler(handler, errHandler)
	}

	if opts.Stream != nil {
		handler = newStreamHandler(handler, opts.Stream)
	}
	if session := strings.TrimSpace(opts.SessionID); session != "" {
		handler = newSessionIDHandler(handler, session)
	}

	return slog.New(handler), nil
}

// NewFromConfig derives logger options from the runtime configuration, writing
// to stdout plus the shared log file under the configured log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "lector.log")
	opts := Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	}
	return New(opts)
}

func buildHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, lvl, addSource), nil
	case "json":
		return newJSONHandler(w, lvl, addSource)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

// ParseLevel maps a config-level string onto a slog level. Unknown values
// default to info.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "dpanic", "panic", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func openWriters(paths []string) (io.Writer, error) {
	writers := make([]io.Writer, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, fmt.Errorf("ensure log dir for %s: %w", trimmed, err)
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return io.Discard, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
