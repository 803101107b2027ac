// Package offline holds the file-backed fallback stores consulted when the
// relational store is unreachable. Each store is an append-only JSON-line log
// replayed at open; writes are serialized through a mutex and the log is
// compacted once deletions accumulate, so concurrent callers cannot lose
// updates the way whole-file rewrites would.
package offline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	opPut    = "put"
	opDelete = "del"

	// compactThreshold is the number of superseded records tolerated before
	// the log is rewritten from live state.
	compactThreshold = 256
)

type record struct {
	Op    string          `json:"op"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// log is an append-only key/value journal. Not safe for concurrent use on
// its own; owning stores hold the lock.
type log struct {
	mu   sync.Mutex
	path string
	file *os.File
	live map[string]json.RawMessage
	dead int // superseded records since last compaction
}

func openLog(path string) (*log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	l := &log{
		path: path,
		live: make(map[string]json.RawMessage),
	}
	if err := l.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot log: %w", err)
	}
	l.file = file

	return l, nil
}

// replay rebuilds live state from the journal. Truncated trailing lines
// (torn writes) are skipped.
func (l *log) replay() error {
	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		switch rec.Op {
		case opPut:
			if _, ok := l.live[rec.Key]; ok {
				l.dead++
			}
			l.live[rec.Key] = rec.Value
		case opDelete:
			delete(l.live, rec.Key)
			l.dead++
		}
	}
	return scanner.Err()
}

func (l *log) get(key string, out interface{}) (bool, error) {
	l.mu.Lock()
	raw, ok := l.live[key]
	l.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode snapshot record: %w", err)
	}
	return true, nil
}

func (l *log) put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(record{Op: opPut, Key: key, Value: raw}); err != nil {
		return err
	}
	if _, ok := l.live[key]; ok {
		l.dead++
	}
	l.live[key] = raw

	return l.maybeCompact()
}

func (l *log) delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.live[key]; !ok {
		return nil
	}
	if err := l.append(record{Op: opDelete, Key: key}); err != nil {
		return err
	}
	delete(l.live, key)
	l.dead++

	return l.maybeCompact()
}

func (l *log) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.live))
	for k := range l.live {
		keys = append(keys, k)
	}
	return keys
}

func (l *log) append(rec record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode journal line: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append journal line: %w", err)
	}
	return nil
}

// maybeCompact rewrites the journal from live state once enough superseded
// records have piled up. Caller holds the lock.
func (l *log) maybeCompact() error {
	if l.dead < compactThreshold {
		return nil
	}

	tmp := l.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create compaction file: %w", err)
	}

	writer := bufio.NewWriter(file)
	for key, raw := range l.live {
		line, err := json.Marshal(record{Op: opPut, Key: key, Value: raw})
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to encode compaction line: %w", err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			file.Close()
			return fmt.Errorf("failed to write compaction line: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush compaction file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close compaction file: %w", err)
	}

	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to swap compacted log: %w", err)
	}

	l.file.Close()
	l.file, err = os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to reopen compacted log: %w", err)
	}
	l.dead = 0

	return nil
}

func (l *log) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
