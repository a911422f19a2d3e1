package jobs

import (
	"fmt"
	"strings"
)

// Quality selects the target audio bitrate passed to the downloader.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// DefaultQuality is used when a request leaves the tier unset.
const DefaultQuality = QualityHigh

// Qualities lists the tiers from lowest to highest bitrate.
func Qualities() []Quality {
	return []Quality{QualityLow, QualityMedium, QualityHigh}
}

// Bitrate returns the target bitrate in kbps.
func (q Quality) Bitrate() int {
	switch q {
	case QualityLow:
		return 128
	case QualityMedium:
		return 192
	default:
		return 320
	}
}

// ToolValue is the --audio-quality argument for the tier, an explicit
// bitrate so yt-dlp does not read it as a VBR level.
func (q Quality) ToolValue() string {
	return fmt.Sprintf("%dK", q.Bitrate())
}

// Label renders the tier for display, e.g. "320 kbps".
func (q Quality) Label() string {
	return fmt.Sprintf("%d kbps", q.Bitrate())
}

// ParseQuality accepts a tier name or its bitrate ("high", "320", "320k").
// Blank input yields DefaultQuality.
func ParseQuality(value string) (Quality, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(strings.TrimSuffix(v, "kbps"), "k")
	v = strings.TrimSpace(v)
	switch v {
	case "":
		return DefaultQuality, nil
	case string(QualityLow), "128":
		return QualityLow, nil
	case string(QualityMedium), "192":
		return QualityMedium, nil
	case string(QualityHigh), "320":
		return QualityHigh, nil
	}
	return "", fmt.Errorf("unknown audio quality %q (want low, medium or high)", value)
}
