package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05"

// prettyHandler writes a header line per record and one indented bullet per
// remaining attribute. Component, job and sampled progress fields are folded
// into the header; debug records list raw keys instead of labels.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleRecord is a record split into header parts and bullet fields.
type consoleRecord struct {
	component string
	jobID     string
	stage     string
	percent   string
	eta       string
	fields    []kv
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	collected := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		collected = appendFlattened(collected, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collected = appendFlattened(collected, h.groups, attr)
		return true
	})
	debug := record.Level < slog.LevelInfo
	split := splitConsoleFields(dedupeKVsByKey(collected), debug)

	var buf bytes.Buffer
	buf.Grow(128 + len(split.fields)*32)
	h.writeHeader(&buf, record, split)
	for _, item := range split.fields {
		if debug {
			buf.WriteString("    " + item.key + ": " + formatValue(item.value) + "\n")
			continue
		}
		buf.WriteString("    - " + displayLabel(item.key) + ": " + formatValueForKey(item.key, item.value) + "\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) writeHeader(buf *bytes.Buffer, record slog.Record, rec consoleRecord) {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	buf.WriteString(timestamp.In(time.Local).Format(consoleTimestampLayout))
	buf.WriteString(" " + levelLabel(record.Level))
	if rec.component != "" {
		buf.WriteString(" [" + rec.component + "]")
	}
	if rec.jobID != "" {
		buf.WriteString(" Job " + shortID(rec.jobID))
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" - " + message)
	if progress := rec.progressSummary(); progress != "" {
		buf.WriteString(" (" + progress + ")")
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	buf.WriteByte('\n')
}

// splitConsoleFields pulls header fields out of the attribute list. Progress
// fields stay as bullets in debug output.
func splitConsoleFields(items []kv, debug bool) consoleRecord {
	var rec consoleRecord
	rec.fields = make([]kv, 0, len(items))
	for _, item := range items {
		switch {
		case item.key == FieldComponent:
			rec.component = attrString(item.value)
		case item.key == FieldJobID:
			rec.jobID = attrString(item.value)
		case !debug && item.key == FieldProgressStage:
			rec.stage = attrString(item.value)
		case !debug && item.key == FieldProgressPercent:
			rec.percent = formatValueForKey(item.key, item.value)
		case !debug && item.key == FieldProgressETA:
			rec.eta = attrString(item.value)
		default:
			rec.fields = append(rec.fields, item)
		}
	}
	return rec
}

func (r consoleRecord) progressSummary() string {
	parts := make([]string, 0, 2)
	switch {
	case r.stage != "" && r.percent != "":
		parts = append(parts, r.stage+" "+r.percent)
	case r.percent != "":
		parts = append(parts, r.percent)
	case r.stage != "":
		parts = append(parts, r.stage)
	}
	if r.eta != "" {
		parts = append(parts, "ETA "+r.eta)
	}
	return strings.Join(parts, ", ")
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with the last value.
func dedupeKVsByKey(items []kv) []kv {
	index := make(map[string]int, len(items))
	out := make([]kv, 0, len(items))
	for _, item := range items {
		if item.key == "" {
			continue
		}
		if pos, seen := index[item.key]; seen {
			out[pos].value = item.value
			continue
		}
		index[item.key] = len(out)
		out = append(out, item)
	}
	return out
}

// appendFlattened expands groups into dotted keys.
func appendFlattened(dst []kv, prefix []string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() != slog.KindGroup {
		key := attr.Key
		if len(prefix) > 0 {
			key = strings.Join(prefix, ".") + "." + key
		}
		return append(dst, kv{key: key, value: attr.Value})
	}
	nested := prefix
	if attr.Key != "" {
		nested = append(append([]string(nil), prefix...), attr.Key)
	}
	for _, child := range attr.Value.Group() {
		dst = appendFlattened(dst, nested, child)
	}
	return dst
}

var fieldLabels = map[string]string{
	FieldEventType: "Event",
	FieldErrorHint: "Hint",
	FieldRequestID: "Request",
	"url":          "URL",
	"pid":          "PID",
}

func displayLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindFloat64:
		if key == FieldProgressPercent {
			return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
		}
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	}
	return formatValue(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
