// Package alias expands command names into replacement command lines.
package alias

import (
	"sort"

	shlex "github.com/anmitsu/go-shlex"
)

// Table maps an alias name to its replacement command line.
type Table map[string]string

// Lookup returns the replacement for name split into words. Replacements
// aren't expanded again.
func (t Table) Lookup(name string) ([]string, bool) {
	replacement, ok := t[name]
	if !ok {
		return nil, false
	}

	words, err := shlex.Split(replacement, true)
	if err != nil || len(words) == 0 {
		return nil, false
	}
	return words, true
}

// Names returns the aliases in sorted order.
func (t Table) Names() []string {
	var out []string
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
