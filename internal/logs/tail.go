package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const pollInterval = 250 * time.Millisecond

type TailOptions struct {
	// Offset is a byte position to read from; negative means "last Limit lines".
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	// Match keeps only lines containing the substring, e.g. a job id.
	Match string
}

type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path according to opts. A missing file yields an
// empty result at offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	t := tailer{path: path, match: opts.Match}
	wait := max(opts.Wait, 0)

	var result TailResult
	if opts.Offset < 0 {
		result, err = t.last(opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Rotated or truncated underneath us.
			offset = info.Size()
		}
		result, err = t.forward(offset, opts.Limit)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && wait > 0 && len(result.Lines) == 0 {
		return t.await(ctx, result.Offset, opts.Limit, wait)
	}
	return result, nil
}

type tailer struct {
	path  string
	match string
}

func (t tailer) keep(line string) bool {
	return t.match == "" || strings.Contains(line, t.match)
}

func (t tailer) open() (*os.File, *bufio.Scanner, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return file, scanner, nil
}

// last returns up to limit trailing lines and the end-of-file offset.
func (t tailer) last(limit int) (TailResult, error) {
	file, scanner, err := t.open()
	if err != nil {
		return TailResult{}, err
	}
	defer file.Close()

	var ring []string
	for limit > 0 && scanner.Scan() {
		line := scanner.Text()
		if !t.keep(line) {
			continue
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}
	return TailResult{Lines: ring, Offset: end}, nil
}

// forward reads complete lines after offset. A trailing partial line is left
// for the next call.
func (t tailer) forward(offset int64, limit int) (TailResult, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	result := TailResult{Offset: offset}
	for limit <= 0 || len(result.Lines) < limit {
		raw, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("read log file: %w", err)
		}
		result.Offset += int64(len(raw))
		line := strings.TrimRight(raw, "\r\n")
		if t.keep(line) {
			result.Lines = append(result.Lines, line)
		}
	}
	return result, nil
}

func (t tailer) await(ctx context.Context, offset int64, limit int, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		result, err := t.forward(offset, limit)
		if err != nil {
			return result, err
		}
		offset = result.Offset
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
	}
}
