// Package history stores the lines the user has run.
package history

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrOutOfRange is returned when removing an entry that doesn't exist.
var ErrOutOfRange = errors.New("history position out of range")

// Store is a file backed list of history lines. Repeated lines are kept only
// at their most recent position.
type Store struct {
	fs    afero.Fs
	path  string
	limit int

	lines  []string
	hashes []uint64
}

// Open reads the history file at path, if it exists. A limit of zero or less
// keeps every line.
func Open(fs afero.Fs, path string, limit int) (*Store, error) {
	s := &Store{fs: fs, path: path, limit: limit}

	contents, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, errors.Wrapf(err, "reading history %q", path)
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		s.append(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading history %q", path)
	}
	s.trim()

	return s, nil
}

func (s *Store) append(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	sum := xxhash.Sum64String(line)
	for i, h := range s.hashes {
		if h == sum && s.lines[i] == line {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.hashes = append(s.hashes[:i], s.hashes[i+1:]...)
			break
		}
	}

	s.lines = append(s.lines, line)
	s.hashes = append(s.hashes, sum)
	return true
}

func (s *Store) trim() {
	if s.limit <= 0 || len(s.lines) <= s.limit {
		return
	}
	drop := len(s.lines) - s.limit
	s.lines = append([]string(nil), s.lines[drop:]...)
	s.hashes = append([]uint64(nil), s.hashes[drop:]...)
}

// Add records a line and saves the history. Blank lines are ignored.
func (s *Store) Add(line string) error {
	if !s.append(line) {
		return nil
	}
	s.trim()
	return s.save()
}

// Lines returns a copy of the history, oldest first.
func (s *Store) Lines() []string {
	return append([]string(nil), s.lines...)
}

// Count returns the number of lines in the history.
func (s *Store) Count() int {
	return len(s.lines)
}

// Clean removes every line.
func (s *Store) Clean() error {
	s.lines = nil
	s.hashes = nil
	return s.save()
}

// Remove deletes the line at the 1-based position n as shown by Print.
func (s *Store) Remove(n int) error {
	if n < 1 || n > len(s.lines) {
		return errors.Wrapf(ErrOutOfRange, "%d", n)
	}
	i := n - 1
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.hashes = append(s.hashes[:i], s.hashes[i+1:]...)
	return s.save()
}

// Print writes the history with 1-based line numbers.
func (s *Store) Print(w io.Writer) {
	for i, line := range s.lines {
		fmt.Fprintf(w, "% 5d  %s\n", i+1, line)
	}
}

func (s *Store) save() error {
	var buf bytes.Buffer
	for _, line := range s.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := afero.WriteFile(s.fs, s.path, buf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "saving history %q", s.path)
	}
	return nil
}
