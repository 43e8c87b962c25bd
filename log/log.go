package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "charm.land/log/v2"
)

// Level is a log severity name.
type Level string

// Format is a log output format name.
type Format string

const (
	// LevelError logs errors only.
	LevelError Level = "error"
	// LevelWarn logs warnings and errors.
	LevelWarn Level = "warn"
	// LevelInfo logs informational messages and above.
	LevelInfo Level = "info"
	// LevelDebug logs everything.
	LevelDebug Level = "debug"
)

const (
	// FormatJSON writes one JSON object per entry.
	FormatJSON Format = "json"
	// FormatLogfmt writes logfmt key=value pairs.
	FormatLogfmt Format = "logfmt"
	// FormatText writes human-readable lines.
	FormatText Format = "text"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownLogLevel indicates an unrecognized log level string.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

var (
	levels  = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}
	formats = []Format{FormatText, FormatJSON, FormatLogfmt}
)

// Slog returns the [slog.Level] for l. Unknown levels map to info.
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

// ParseLevel parses a level name, ignoring case. "warning" is accepted as
// [LevelWarn].
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(s))
	if l == "warning" {
		return LevelWarn, nil
	}

	for _, known := range levels {
		if l == known {
			return l, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownLogLevel, s)
}

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownLogFormat, s)
}

// GetAllLevelStrings returns the level names, most severe first.
func GetAllLevelStrings() []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, string(l))
	}

	return out
}

// GetAllFormatStrings returns the format names.
func GetAllFormatStrings() []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, string(f))
	}

	return out
}

// NewHandler creates a [slog.Handler] writing entries at or above level to
// w in the given format. Unknown formats fall back to [FormatText].
func NewHandler(w io.Writer, level Level, format Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level.Slog()}

	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	case FormatLogfmt:
		return slog.NewTextHandler(w, opts)
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level.Slog()),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// NewHandlerFromStrings parses level and format and calls [NewHandler].
// Parse failures wrap [ErrInvalidArgument].
func NewHandlerFromStrings(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	f, err := ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return NewHandler(w, lvl, f), nil
}
