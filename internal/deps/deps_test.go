package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
		{Name: "Explicit", Command: filepath.Join(binDir, "absent")},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if !strings.Contains(results[1].Detail, "not on PATH") {
		t.Fatalf("expected PATH hint for bare name, got %q", results[1].Detail)
	}
	if !strings.Contains(results[3].Detail, "not found or not executable") {
		t.Fatalf("expected path detail for explicit binary, got %q", results[3].Detail)
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestResolvePrefersBundle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bundle permissions are POSIX specific")
	}
	bundle := t.TempDir()
	ytdlp := filepath.Join(bundle, "yt-dlp")
	ffmpeg := filepath.Join(bundle, "ffmpeg")
	// Bundles unpacked from archives may lose the executable bit.
	if err := os.WriteFile(ytdlp, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write yt-dlp: %v", err)
	}
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg: %v", err)
	}

	tools := Locator{BundleDir: bundle, YTDLP: "yt-dlp"}.Resolve()
	if !tools.Bundled || tools.YTDLP != ytdlp {
		t.Fatalf("expected bundled yt-dlp, got %#v", tools)
	}
	if tools.FFmpegDir != bundle {
		t.Fatalf("expected ffmpeg dir %q, got %q", bundle, tools.FFmpegDir)
	}
	info, err := os.Stat(ytdlp)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected bundled binary to be marked executable, got %v", info.Mode())
	}
}

func TestResolveFallsBackToPath(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"yt-dlp", "ffmpeg"} {
		if err := os.WriteFile(filepath.Join(binDir, executableName(name)), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir)

	tools := Locator{BundleDir: filepath.Join(t.TempDir(), "missing")}.Resolve()
	if tools.Bundled {
		t.Fatal("did not expect bundled toolchain")
	}
	if tools.YTDLP != filepath.Join(binDir, executableName("yt-dlp")) {
		t.Fatalf("unexpected yt-dlp path %q", tools.YTDLP)
	}
	if tools.FFmpeg == "" {
		t.Fatal("expected ffmpeg from PATH")
	}
	if tools.FFmpegDir != "" {
		t.Fatalf("ffmpeg location should only be set for bundled or explicit binaries, got %q", tools.FFmpegDir)
	}
}

func TestResolveExplicitFFmpegPath(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg: %v", err)
	}
	t.Setenv("PATH", t.TempDir())

	tools := Locator{FFmpeg: ffmpeg}.Resolve()
	if tools.FFmpegDir != dir {
		t.Fatalf("expected ffmpeg dir %q, got %q", dir, tools.FFmpegDir)
	}
	if tools.YTDLP != "yt-dlp" {
		t.Fatalf("expected bare yt-dlp name when missing, got %q", tools.YTDLP)
	}
}

func TestRequirementsDefaultsFFmpegName(t *testing.T) {
	reqs := Requirements(Tools{YTDLP: "/opt/yt-dlp"})
	if len(reqs) != 2 {
		t.Fatalf("expected two requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/yt-dlp" || reqs[1].Command != "ffmpeg" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
}
