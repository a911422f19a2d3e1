package jobs_test

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"wavecatch/internal/jobs"
)

func TestQualityBitrateAndLabel(t *testing.T) {
	tests := []struct {
		quality jobs.Quality
		kbps    int
		label   string
	}{
		{jobs.QualityLow, 128, "128 kbps"},
		{jobs.QualityMedium, 192, "192 kbps"},
		{jobs.QualityHigh, 320, "320 kbps"},
		{jobs.Quality(""), 320, "320 kbps"},
	}
	for _, tt := range tests {
		if got := tt.quality.Bitrate(); got != tt.kbps {
			t.Fatalf("%q bitrate = %d, want %d", tt.quality, got, tt.kbps)
		}
		if got := tt.quality.ToolValue(); got != strconv.Itoa(tt.kbps)+"K" {
			t.Fatalf("%q tool value = %q", tt.quality, got)
		}
		if got := tt.quality.Label(); got != tt.label {
			t.Fatalf("%q label = %q, want %q", tt.quality, got, tt.label)
		}
	}
}

func TestParseQuality(t *testing.T) {
	tests := map[string]jobs.Quality{
		"":         jobs.QualityHigh,
		"low":      jobs.QualityLow,
		" MEDIUM ": jobs.QualityMedium,
		"320":      jobs.QualityHigh,
		"128k":     jobs.QualityLow,
		"192 kbps": jobs.QualityMedium,
	}
	for input, want := range tests {
		got, err := jobs.ParseQuality(input)
		if err != nil {
			t.Fatalf("ParseQuality(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseQuality(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := jobs.ParseQuality("lossless"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestDownloadingClampsProgress(t *testing.T) {
	if got := jobs.Downloading(1.7, "", "").Progress; got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
	if got := jobs.Downloading(-0.2, "", "").Progress; got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := jobs.Downloading(math.NaN(), "", "").Progress; got != 0 {
		t.Fatalf("expected NaN to become 0, got %v", got)
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := []jobs.State{jobs.Completed("/music"), jobs.Failed("boom")}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
	open := []jobs.State{jobs.Idle(), jobs.Analyzing("x"), jobs.Downloading(0.5, "", ""), jobs.Converting("x")}
	for _, s := range open {
		if s.IsTerminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
	job := jobs.Job{State: jobs.Completed("/music")}
	if !job.Finished() {
		t.Fatal("expected completed job to be finished")
	}
}

func TestStateString(t *testing.T) {
	s := jobs.Downloading(0.452, "1.20MiB/s", "00:03").String()
	for _, fragment := range []string{"45.2%", "1.20MiB/s", "00:03"} {
		if !strings.Contains(s, fragment) {
			t.Fatalf("expected %q in %q", fragment, s)
		}
	}
	if got := jobs.Failed("Private video").String(); got != "error: Private video" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := (jobs.State{}).String(); got != "idle" {
		t.Fatalf("unexpected zero string %q", got)
	}
}
