package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"
)

// maxConsoleValue caps a single rendered value; yt-dlp output tails can run
// to several kilobytes and belong in the JSON log, not the terminal.
const maxConsoleValue = 400

// attrString renders v without quoting, for header fields.
func attrString(v slog.Value) string {
	return renderValue(v, false)
}

// formatValue renders v for a bullet line, quoting strings that would break
// the one-line-per-field layout.
func formatValue(v slog.Value) string {
	return renderValue(v, true)
}

func renderValue(v slog.Value, quote bool) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(consoleTimestampLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	s = clip(s)
	if quote {
		return quoteIfNeeded(s)
	}
	return s
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxConsoleValue {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxConsoleValue]) + fmt.Sprintf("… (%d more chars)", len(runes)-maxConsoleValue)
}

// quoteIfNeeded quotes empty strings and values containing control
// characters so multi-line tool output stays on one line.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r < ' ' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
