// Package zdb tracks how often and how recently directories are visited so
// they can be jumped to by a fragment of their name.
package zdb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// MaxTotalRank is the sum of ranks above which every rank is aged.
const MaxTotalRank = 9000

var (
	ErrNotFound = errors.New("no matching directory")
	ErrBadEntry = errors.New("malformed entry")
)

// Entry is a visited directory.
type Entry struct {
	Path string
	Rank float64
	Time time.Time
}

// Frecency weights the rank by how long ago the directory was visited.
func (e Entry) Frecency(now time.Time) float64 {
	age := now.Sub(e.Time)
	switch {
	case age < time.Hour:
		return e.Rank * 4
	case age < 24*time.Hour:
		return e.Rank * 2
	case age < 7*24*time.Hour:
		return e.Rank / 2
	default:
		return e.Rank / 4
	}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s|%s|%d", e.Path, strconv.FormatFloat(e.Rank, 'f', -1, 64), e.Time.Unix())
}

func parseEntry(line string) (*Entry, error) {
	// Paths may contain '|', the rank and time never do.
	timeSep := strings.LastIndex(line, "|")
	if timeSep < 0 {
		return nil, errors.Wrapf(ErrBadEntry, "%q", line)
	}
	rankSep := strings.LastIndex(line[:timeSep], "|")
	if rankSep < 0 {
		return nil, errors.Wrapf(ErrBadEntry, "%q", line)
	}

	rank, err := strconv.ParseFloat(line[rankSep+1:timeSep], 64)
	if err != nil {
		return nil, errors.Wrapf(ErrBadEntry, "%q: rank: %v", line, err)
	}
	seconds, err := strconv.ParseInt(line[timeSep+1:], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrBadEntry, "%q: time: %v", line, err)
	}

	return &Entry{Path: line[:rankSep], Rank: rank, Time: time.Unix(seconds, 0)}, nil
}

// DB is the frecency database backed by a file.
type DB struct {
	fs   afero.Fs
	path string
	// Now returns the current time, time.Now by default.
	Now func() time.Time
	// Dirs is where Match checks that directories still exist, the OS
	// filesystem by default.
	Dirs afero.Fs

	entries []*Entry
}

// Open loads the database stored at path in fs. A missing file is an empty
// database and malformed lines are dropped.
func Open(fs afero.Fs, path string) (*DB, error) {
	db := &DB{fs: fs, path: path, Now: time.Now, Dirs: afero.NewOsFs()}

	contents, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return db, nil
	case err != nil:
		return nil, errors.Wrapf(err, "reading %q", path)
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		if entry, err := parseEntry(scanner.Text()); err == nil {
			db.entries = append(db.entries, entry)
		}
	}
	return db, scanner.Err()
}

func (db *DB) find(dir string) int {
	for i, e := range db.entries {
		if e.Path == dir {
			return i
		}
	}
	return -1
}

// Add records a visit to dir.
func (db *DB) Add(dir string) error {
	now := db.Now()

	if i := db.find(dir); i >= 0 {
		db.entries[i].Rank++
		db.entries[i].Time = now
	} else {
		db.entries = append(db.entries, &Entry{Path: dir, Rank: 1, Time: now})
	}

	db.age()
	return db.save()
}

// age scales every rank down once the total grows too large and forgets
// directories whose rank drops below one.
func (db *DB) age() {
	var total float64
	for _, e := range db.entries {
		total += e.Rank
	}
	if total <= MaxTotalRank {
		return
	}

	kept := db.entries[:0]
	for _, e := range db.entries {
		e.Rank *= 0.99
		if e.Rank >= 1 {
			kept = append(kept, e)
		}
	}
	db.entries = kept
}

// Remove forgets dir.
func (db *DB) Remove(dir string) error {
	i := db.find(dir)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "%q", dir)
	}
	db.entries = append(db.entries[:i], db.entries[i+1:]...)
	return db.save()
}

// Entries returns the entries with the highest frecency first.
func (db *DB) Entries() []Entry {
	now := db.Now()
	out := make([]Entry, 0, len(db.entries))
	for _, e := range db.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Frecency(now), out[j].Frecency(now)
		if fi == fj {
			return out[i].Path < out[j].Path
		}
		return fi > fj
	})
	return out
}

// Match returns the directory with the highest frecency whose path matches
// every term in order, ignoring case. Directories that no longer exist are
// skipped.
func (db *DB) Match(terms []string) (string, error) {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	re, err := regexp.Compile("(?i)" + strings.Join(quoted, ".*"))
	if err != nil {
		return "", err
	}

	for _, e := range db.Entries() {
		if !re.MatchString(e.Path) {
			continue
		}
		if ok, _ := afero.DirExists(db.Dirs, e.Path); !ok {
			continue
		}
		return e.Path, nil
	}
	return "", errors.Wrapf(ErrNotFound, "%q", strings.Join(terms, " "))
}

// Print writes the entries lowest frecency first, so the best match is
// closest to the prompt.
func (db *DB) Print(w io.Writer) {
	now := db.Now()
	entries := db.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "%-10.1f %s\n", entries[i].Frecency(now), entries[i].Path)
	}
}

func (db *DB) save() error {
	var buf bytes.Buffer
	for _, e := range db.entries {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	if err := afero.WriteFile(db.fs, db.path, buf.Bytes(), 0600); err != nil {
		return errors.Wrapf(err, "saving %q", db.path)
	}
	return nil
}
