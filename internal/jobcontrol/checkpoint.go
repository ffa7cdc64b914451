package jobcontrol

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Log is the append-only checkpoint log. Appends are serialized; a single
// Log value must be shared by every writer of one signature.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a checkpoint log backed by path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file.
func (l *Log) Path() string { return l.path }

// Load reads the set of checkpointed identifiers. A missing file is an empty set.
func (l *Log) Load() (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines, err := readLines(l.path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint log: %w", err)
	}
	done := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		done[line] = struct{}{}
	}
	return done, nil
}

// Append durably records item as completed.
func (l *Log) Append(item string) error {
	if err := validateItem(item); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint log: %w", err)
	}
	if _, err := f.WriteString(item + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync checkpoint log: %w", err)
	}
	return f.Close()
}

func validateItem(item string) error {
	if item == "" {
		return errors.New("checkpoint: empty item identifier")
	}
	if strings.ContainsAny(item, "\r\n") {
		return fmt.Errorf("checkpoint: item identifier %q contains a line break", item)
	}
	return nil
}

// readLines returns the non-empty lines of path. A missing file yields nil.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
