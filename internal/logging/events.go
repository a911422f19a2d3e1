package logging

import "log/slog"

const (
	defaultErrorHint = "run `wavecatch logs` for the surrounding yt-dlp output"
	defaultImpact    = "the job continues"
)

// withEventFields appends the event type and any defaults the caller did not
// supply itself.
func withEventFields(attrs []Attr, eventType string, defaults ...Attr) []Attr {
	out := make([]Attr, 0, len(attrs)+len(defaults)+1)
	out = append(out, attrs...)
	if !HasAttrKey(attrs, FieldEventType) {
		out = append(out, String(FieldEventType, eventType))
	}
	for _, def := range defaults {
		if !HasAttrKey(attrs, def.Key) {
			out = append(out, def)
		}
	}
	return out
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Missing fields get defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withEventFields(attrs, eventType,
		String(FieldErrorHint, defaultErrorHint),
		String(FieldImpact, defaultImpact),
	)
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withEventFields(attrs, eventType, String(FieldErrorHint, defaultErrorHint))
	logger.Error(msg, Args(attrs...)...)
}
