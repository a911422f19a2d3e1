package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"wavecatch/internal/deps"
	"wavecatch/internal/jobs"
	"wavecatch/internal/registry"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	job := jobs.Job{
		ID:            "abc",
		URL:           "https://youtu.be/x",
		Title:         "Night Drive",
		Quality:       jobs.QualityLow,
		OutputDir:     "/music",
		EmbedMetadata: true,
		State:         jobs.Downloading(0.452, "1.20MiB/s", "00:03"),
		Items:         4,
		CreatedAt:     created,
	}
	dto := FromJob(job)
	if dto.QualityLabel != "128 kbps" || dto.Quality != "low" {
		t.Fatalf("unexpected quality fields %+v", dto)
	}
	if dto.State.Kind != "downloading" || dto.State.Progress != 0.452 || dto.State.Speed != "1.20MiB/s" || dto.State.ETA != "00:03" {
		t.Fatalf("unexpected state %+v", dto.State)
	}
	if dto.CreatedAt != "2026-03-04T05:06:07.008Z" || dto.UpdatedAt != "" {
		t.Fatalf("unexpected timestamps %q %q", dto.CreatedAt, dto.UpdatedAt)
	}
	if back := ToState(dto.State); back != job.State {
		t.Fatalf("state did not survive conversion: %+v", back)
	}
}

func TestJobStateAlwaysCarriesSpeedAndETA(t *testing.T) {
	payload, err := json.Marshal(FromState(jobs.Downloading(1, "", "")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"speed":""`, `"eta":""`, `"progress":1`} {
		if !strings.Contains(string(payload), key) {
			t.Fatalf("expected %s in %s", key, payload)
		}
	}
}

func TestFromUpdatesAndCounts(t *testing.T) {
	list := []jobs.Job{
		{ID: "a", State: jobs.Completed("/music")},
		{ID: "b", State: jobs.Failed("boom")},
		{ID: "c", State: jobs.Completed("/music")},
	}
	counts := JobCounts(list)
	if counts["completed"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if got := FromUpdates(nil); got != nil {
		t.Fatalf("expected nil for no updates, got %v", got)
	}
	updates := FromUpdates([]registry.Update{{Sequence: 9, Type: registry.UpdateRemoved, Job: list[1]}})
	if len(updates) != 1 || updates[0].Sequence != 9 || updates[0].Type != "removed" || updates[0].Job.ID != "b" {
		t.Fatalf("unexpected updates %+v", updates)
	}
	if jobsOut := FromJobs(list); len(jobsOut) != 3 || jobsOut[2].ID != "c" {
		t.Fatalf("order not preserved: %+v", jobsOut)
	}
}

func TestFromDependenciesSeverity(t *testing.T) {
	out := FromDependencies([]deps.Status{
		{Name: "yt-dlp", Available: true},
		{Name: "FFmpeg", Available: false},
		{Name: "extra", Available: false, Optional: true},
	})
	want := []string{"ok", "error", "warn"}
	for i, dep := range out {
		if dep.Severity != want[i] {
			t.Fatalf("%s severity %q, want %q", dep.Name, dep.Severity, want[i])
		}
	}
}
