// Package complete suggests command and file names for the line editor.
package complete

import "sort"

type node struct {
	children map[rune]*node
	terminal bool
}

// Trie is a prefix tree of words.
type Trie struct {
	root node
	size int
}

// NewTrie creates a trie holding words.
func NewTrie(words ...string) *Trie {
	t := &Trie{}
	for _, w := range words {
		t.Insert(w)
	}
	return t
}

// Insert adds a word; duplicates are ignored.
func (t *Trie) Insert(word string) {
	if word == "" {
		return
	}

	n := &t.root
	for _, r := range word {
		if n.children == nil {
			n.children = make(map[rune]*node)
		}
		child, ok := n.children[r]
		if !ok {
			child = &node{}
			n.children[r] = child
		}
		n = child
	}

	if !n.terminal {
		n.terminal = true
		t.size++
	}
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	return t.size
}

// Complete returns every word starting with prefix in sorted order.
func (t *Trie) Complete(prefix string) []string {
	n := &t.root
	for _, r := range prefix {
		child, ok := n.children[r]
		if !ok {
			return nil
		}
		n = child
	}

	var out []string
	collect(n, []rune(prefix), &out)
	sort.Strings(out)
	return out
}

func collect(n *node, word []rune, out *[]string) {
	if n.terminal {
		*out = append(*out, string(word))
	}
	for r, child := range n.children {
		collect(child, append(word, r), out)
	}
}
