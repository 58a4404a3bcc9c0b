package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	maxLineBytes        = 1 << 20
)

// Tail returns up to limit trailing lines of path and the offset just past
// the last complete line. A missing file yields no lines and offset 0.
func Tail(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	var (
		ring   = make([]string, max(limit, 0))
		count  int
		idx    int
		offset int64
	)
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			offset += int64(len(line))
			if limit > 0 {
				ring[idx] = string(trimEOL(line))
				idx = (idx + 1) % limit
				count = min(count+1, limit)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
	}

	lines := make([]string, 0, count)
	start := (idx - count + limit) % max(limit, 1)
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// Follower reports lines appended to a file after a starting offset.
type Follower struct {
	path   string
	offset int64
	poll   time.Duration
}

// NewFollower starts following path at offset, typically the value
// returned by Tail.
func NewFollower(path string, offset int64) *Follower {
	return &Follower{path: path, offset: offset, poll: defaultPollInterval}
}

// Offset reports the position after the last line returned.
func (f *Follower) Offset() int64 {
	return f.offset
}

// Next blocks until at least one complete line is appended or ctx ends.
func (f *Follower) Next(ctx context.Context) ([]string, error) {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()
	for {
		lines, err := f.read()
		if err != nil || len(lines) > 0 {
			return lines, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Follower) read() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.offset = 0
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < f.offset {
		f.offset = 0
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log file: %w", err)
	}
	chunk, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	end := bytes.LastIndexByte(chunk, '\n')
	if end < 0 {
		if len(chunk) > maxLineBytes {
			f.offset += int64(len(chunk))
			return []string{string(chunk)}, nil
		}
		return nil, nil
	}
	chunk = chunk[:end+1]
	f.offset += int64(len(chunk))

	var lines []string
	for _, raw := range bytes.SplitAfter(chunk, []byte{'\n'}) {
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, string(trimEOL(raw)))
	}
	return lines, nil
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}
