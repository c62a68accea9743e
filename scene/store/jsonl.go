// ABOUTME: Append-only JSONL event log, one scene event per line.
// ABOUTME: Batched append with a single fsync, replay, and repair of truncated tails.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/2389-research/funcdeck/scene/core"
)

// maxEventLine bounds a single event line. Chebychev and table functions at
// MaxPoints stay well under this.
const maxEventLine = 1 << 20

// JsonlLog appends scene events to a file.
type JsonlLog struct {
	path string
	file *os.File
}

// OpenJsonl opens path for appending, creating it and its parent directory.
func OpenJsonl(path string) (*JsonlLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dirs: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open jsonl file: %w", err)
	}
	return &JsonlLog{path: path, file: file}, nil
}

// Path returns the log file path.
func (l *JsonlLog) Path() string {
	return l.path
}

// Append writes the events as consecutive lines and fsyncs once.
func (l *JsonlLog) Append(events ...*core.Event) error {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", event.EventID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write event lines: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

// Close closes the file.
func (l *JsonlLog) Close() error {
	return l.file.Close()
}

// scanLines calls fn for every non-blank line of path.
func scanLines(path string, fn func(line []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ReplayJsonl returns every event in the log, in file order.
func ReplayJsonl(path string) ([]core.Event, error) {
	var events []core.Event
	err := scanLines(path, func(line []byte) error {
		var event core.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return fmt.Errorf("parse event line: %w", err)
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay jsonl: %w", err)
	}
	return events, nil
}

// RepairJsonl rewrites the log keeping only lines that decode as events,
// which drops a partially written last line after a crash. The rewrite goes
// through a temp file and rename. Returns the number of events kept.
func RepairJsonl(path string) (int, error) {
	var kept [][]byte
	err := scanLines(path, func(line []byte) error {
		var event core.Event
		if json.Unmarshal(line, &event) == nil {
			kept = append(kept, bytes.Clone(line))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan jsonl for repair: %w", err)
	}

	tmpPath := path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range kept {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("write kept lines: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("fsync temp file: %w", err)
	}
	_ = tmp.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename temp to original: %w", err)
	}
	syncDir(filepath.Dir(path))
	return len(kept), nil
}

// syncDir makes a rename in dir durable. Errors are ignored because not
// every platform supports fsync on directories.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
