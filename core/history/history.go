// Package history keeps a short, persistent log of the lines a user ran.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
)

// DefaultDepth is the number of lines kept by default.
const DefaultDepth = 15

// ErrOutOfRange is returned when looking up an entry that doesn't exist.
var ErrOutOfRange = errors.New("index out of range")

// Log is a newline separated history file, oldest entry first.
type Log struct {
	fs    afero.Fs
	path  string
	depth int
}

// New creates a history stored at path on fs holding up to depth entries.
func New(fs afero.Fs, path string, depth int) *Log {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Log{fs: fs, path: path, depth: depth}
}

// Path returns where the history is stored.
func (l *Log) Path() string {
	return l.path
}

// Entries returns the stored lines, oldest first. A missing file is an empty
// history.
func (l *Log) Entries() ([]string, error) {
	contents, err := afero.ReadFile(l.fs, l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, err
	}

	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(out) > l.depth {
		out = out[len(out)-l.depth:]
	}
	return out, nil
}

// ShouldRecord reports whether a line belongs in the history: blank lines
// and invocations of the log built-in never do.
func ShouldRecord(line string) bool {
	return strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "log")
}

// Add appends line unless it shouldn't be recorded or repeats the newest
// entry, dropping the oldest entries past the depth.
func (l *Log) Add(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if !ShouldRecord(line) {
		return nil
	}

	entries, err := l.Entries()
	if err != nil {
		return err
	}
	if n := len(entries); n > 0 && entries[n-1] == line {
		return nil
	}

	entries = append(entries, line)
	if len(entries) > l.depth {
		entries = entries[len(entries)-l.depth:]
	}
	return l.write(entries)
}

// Purge removes every entry.
func (l *Log) Purge() error {
	return l.write(nil)
}

// Get returns the entry at index, where 1 is the newest.
func (l *Log) Get(index int) (string, error) {
	entries, err := l.Entries()
	if err != nil {
		return "", err
	}
	if index < 1 || index > len(entries) {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	return entries[len(entries)-index], nil
}

func (l *Log) write(entries []string) error {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	return afero.WriteFile(l.fs, l.path, buf.Bytes(), 0600)
}
