package zdb

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2021, 8, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T, store afero.Fs, dirs ...string) *DB {
	t.Helper()

	db, err := Open(store, "/config/z")
	require.NoError(t, err)
	db.Now = func() time.Time { return testNow }

	db.Dirs = afero.NewMemMapFs()
	for _, dir := range dirs {
		require.NoError(t, db.Dirs.MkdirAll(dir, 0755))
	}
	return db
}

func TestEntry_Frecency(t *testing.T) {
	cases := map[string]struct {
		age      time.Duration
		expected float64
	}{
		"minutes": {age: time.Minute, expected: 40},
		"hours":   {age: 3 * time.Hour, expected: 20},
		"days":    {age: 3 * 24 * time.Hour, expected: 5},
		"weeks":   {age: 30 * 24 * time.Hour, expected: 2.5},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			e := Entry{Path: "/x", Rank: 10, Time: testNow.Add(-tc.age)}

			assert.Equal(t, tc.expected, e.Frecency(testNow))
		})
	}
}

func TestDB_AddAndReopen(t *testing.T) {
	store := afero.NewMemMapFs()
	db := openTestDB(t, store)

	require.NoError(t, db.Add("/home/tester/src"))
	require.NoError(t, db.Add("/tmp"))
	require.NoError(t, db.Add("/home/tester/src"))

	contents, err := afero.ReadFile(store, "/config/z")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/src|2|1627819200\n/tmp|1|1627819200\n", string(contents))

	reopened := openTestDB(t, store)
	assert.Equal(t, []Entry{
		{Path: "/home/tester/src", Rank: 2, Time: time.Unix(1627819200, 0)},
		{Path: "/tmp", Rank: 1, Time: time.Unix(1627819200, 0)},
	}, reopened.Entries())
}

func TestOpen_dropsMalformed(t *testing.T) {
	store := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(store, "/config/z", []byte(
		"/ok|3|1627819200\n"+
			"garbage\n"+
			"/bad-rank|x|1\n"+
			"/with|pipe|1.5|1627819200\n"), 0600))

	db := openTestDB(t, store)

	var paths []string
	for _, e := range db.Entries() {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"/ok", "/with|pipe"}, paths)
}

func TestDB_aging(t *testing.T) {
	store := afero.NewMemMapFs()
	db := openTestDB(t, store)
	db.entries = []*Entry{
		{Path: "/busy", Rank: MaxTotalRank, Time: testNow},
		{Path: "/rare", Rank: 1, Time: testNow},
	}

	require.NoError(t, db.Add("/busy"))

	entries := db.Entries()
	require.Len(t, entries, 1, "ranks below one are forgotten")
	assert.Equal(t, "/busy", entries[0].Path)
	assert.InDelta(t, (MaxTotalRank+1)*0.99, entries[0].Rank, 0.0001)
}

func TestDB_Remove(t *testing.T) {
	db := openTestDB(t, afero.NewMemMapFs())
	require.NoError(t, db.Add("/a"))

	require.NoError(t, db.Remove("/a"))
	assert.Empty(t, db.Entries())
	assert.ErrorIs(t, db.Remove("/a"), ErrNotFound)
}

func TestDB_Match(t *testing.T) {
	db := openTestDB(t, afero.NewMemMapFs(), "/home/tester/src/vmsh", "/home/tester/src/other", "/srv/www")
	db.entries = []*Entry{
		{Path: "/home/tester/src/vmsh", Rank: 5, Time: testNow},
		{Path: "/home/tester/src/other", Rank: 10, Time: testNow},
		{Path: "/srv/www", Rank: 1, Time: testNow},
		{Path: "/gone/src", Rank: 100, Time: testNow},
	}

	cases := map[string]struct {
		terms    []string
		expected string
		err      error
	}{
		"best frecency":      {terms: []string{"src"}, expected: "/home/tester/src/other"},
		"ignores case":       {terms: []string{"VMSH"}, expected: "/home/tester/src/vmsh"},
		"terms in order":     {terms: []string{"tester", "vm"}, expected: "/home/tester/src/vmsh"},
		"terms out of order": {terms: []string{"vm", "tester"}, err: ErrNotFound},
		"regexp is literal":  {terms: []string{"s.v"}, err: ErrNotFound},
		"no match":           {terms: []string{"nothing"}, err: ErrNotFound},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := db.Match(tc.terms)

			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestDB_Print(t *testing.T) {
	db := openTestDB(t, afero.NewMemMapFs())
	db.entries = []*Entry{
		{Path: "/often", Rank: 10, Time: testNow},
		{Path: "/old", Rank: 10, Time: testNow.Add(-30 * 24 * time.Hour)},
	}

	var buf bytes.Buffer
	db.Print(&buf)

	assert.Equal(t, "2.5        /old\n40.0       /often\n", buf.String())
}
