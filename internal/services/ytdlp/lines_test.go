package ytdlp

import (
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"testing"
)

func TestSplitLinesHandlesCarriageReturns(t *testing.T) {
	input := "a\rb\r\nc\nd"
	scanner := newLineScanner(strings.NewReader(input))
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTailKeepsNewestLines(t *testing.T) {
	tl := newTail(3)
	if tl.String() != "" {
		t.Fatalf("expected empty tail, got %q", tl.String())
	}
	for _, line := range []string{"1", "2"} {
		tl.add(line)
	}
	if got := tl.String(); got != "1\n2" {
		t.Fatalf("unexpected partial tail %q", got)
	}
	for _, line := range []string{"3", "4", "5"} {
		tl.add(line)
	}
	if got := tl.String(); got != "3\n4\n5" {
		t.Fatalf("unexpected tail %q", got)
	}
}

func TestIsToolMissing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"lookup", &exec.Error{Name: "yt-dlp", Err: exec.ErrNotFound}, true},
		{"enoent", &fs.PathError{Op: "fork/exec", Path: "/x/yt-dlp", Err: fs.ErrNotExist}, true},
		{"chdir", &fs.PathError{Op: "chdir", Path: "/missing", Err: fs.ErrNotExist}, false},
		{"message", errors.New("Cannot run program \"yt-dlp\""), true},
		{"other", errors.New("too many open files"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := isToolMissing(tt.err); got != tt.want {
			t.Fatalf("%s: isToolMissing = %v, want %v", tt.name, got, tt.want)
		}
	}
	if msg := downloadStartMessage(errors.New("too many open files")); msg != "Download error: too many open files" {
		t.Fatalf("unexpected generic message %q", msg)
	}
}

func TestItemsFoundMessage(t *testing.T) {
	if got := ItemsFoundMessage(1); got != "1 item found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := ItemsFoundMessage(12); got != "12 items found" {
		t.Fatalf("unexpected message %q", got)
	}
}
