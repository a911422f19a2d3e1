package ytdlp

import (
	"bufio"
	"bytes"
	"strings"
)

const (
	tailSize      = 5
	maxLineLength = 1 << 20
)

// splitLines is a bufio.SplitFunc that treats '\r', '\n' and "\r\n" as line
// terminators so carriage-return progress redraws arrive as separate lines.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					advance++
				}
			} else if !atEOF {
				// Wait for the next byte to fold "\r\n" into one terminator.
				return 0, nil, nil
			}
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newLineScanner(r interface{ Read([]byte) (int, error) }) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	scanner.Split(splitLines)
	return scanner
}

// tail keeps the most recent lines of output for failure diagnostics.
type tail struct {
	lines []string
	next  int
	full  bool
}

func newTail(size int) *tail {
	return &tail{lines: make([]string, size)}
}

func (t *tail) add(line string) {
	if len(t.lines) == 0 {
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// Lines returns the retained lines, oldest first.
func (t *tail) Lines() []string {
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}

func (t *tail) String() string {
	return strings.Join(t.Lines(), "\n")
}
