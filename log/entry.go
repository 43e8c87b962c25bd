package log

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Entry is one decoded [FormatJSON] log line.
type Entry struct {
	Time    string
	Level   string
	Message string
	// Attrs are the remaining fields in the order they were written.
	Attrs yaml.MapSlice
}

// ParseEntry decodes a line written by a [FormatJSON] handler.
func ParseEntry(b []byte) (Entry, error) {
	var fields yaml.MapSlice

	err := yaml.UnmarshalWithOptions(b, &fields, yaml.UseOrderedMap())
	if err != nil {
		return Entry{}, fmt.Errorf("decode log entry: %w", err)
	}

	var e Entry

	for _, item := range fields {
		key := fmt.Sprint(item.Key)

		switch key {
		case slog.TimeKey:
			e.Time = fmt.Sprint(item.Value)
		case slog.LevelKey:
			e.Level = fmt.Sprint(item.Value)
		case slog.MessageKey:
			e.Message = fmt.Sprint(item.Value)
		default:
			e.Attrs = append(e.Attrs, item)
		}
	}

	return e, nil
}

// String renders e on one line as "LEVEL message key=value ...", dropping
// the timestamp.
func (e Entry) String() string {
	var sb strings.Builder

	sb.WriteString(e.Level)

	if e.Message != "" {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(e.Message)
	}

	for _, item := range e.Attrs {
		fmt.Fprintf(&sb, " %v=%s", item.Key, quoteValue(item.Value))
	}

	return sb.String()
}

func quoteValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		return strconv.Quote(s)
	}

	return s
}
