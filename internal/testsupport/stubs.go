package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// WriteStub writes an executable /bin/sh script named name into dir and
// returns its path. Tests using stubs are skipped on Windows.
func WriteStub(t testing.TB, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
	return path
}

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s waiting for %s", timeout, what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// FakeYTDLP is a yt-dlp stand-in keyed on the URL (the last argument):
//   - "...fail..." prints an ERROR line and exits 1
//   - "...slow..." reports 10% then sleeps until killed
//   - anything else downloads "Test Song" and exits 0
//
// With --flat-playlist it lists two titles for "...playlist..." URLs, exits 1
// for "...fail..." URLs, and prints nothing otherwise.
const FakeYTDLP = `for last; do :; done
case "$*" in
*--flat-playlist*)
  case "$last" in
  *playlist*) echo "First Song"; echo "Second Song"; exit 0 ;;
  *fail*) echo "ERROR: Unsupported URL: $last" >&2; exit 1 ;;
  esac
  exit 0 ;;
esac
case "$last" in
*fail*)
  echo "ERROR: [generic] abc: Video unavailable"
  exit 1 ;;
*slow*)
  echo "[download] Destination: Slow Song.webm"
  echo "[download]  10.0% of 3.00MiB at 1.00MiB/s ETA 00:03"
  sleep 30
  exit 0 ;;
esac
echo "[download] Destination: Test Song.webm"
echo "[download]  50.0% of 3.00MiB at 1.00MiB/s ETA 00:01"
echo "[download] 100% of 3.00MiB in 00:02"
echo "[ExtractAudio] Destination: Test Song.mp3"
exit 0`
