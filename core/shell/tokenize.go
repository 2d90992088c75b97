package shell

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	DefaultMaxTokens      = 128
	DefaultMaxTokenLength = 1024
)

// Token is a single word or operator from an input line.
type Token struct {
	Text string
	Op   Op
}

// Len returns the byte length of the token text.
func (t Token) Len() int {
	return len(t.Text)
}

func (t Token) String() string {
	return fmt.Sprintf("%q:%s", t.Text, t.Op)
}

// Tokens is the token list for one input line.
type Tokens []Token

// Texts returns the text of every token.
func (ts Tokens) Texts() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\a', 0x04, 0x00:
		return true
	}
	return false
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// Tokenizer splits lines into tokens, expanding globs against a filesystem.
type Tokenizer struct {
	// Fs is used for glob expansion. Relative patterns resolve against the
	// process working directory when Fs is an OS filesystem.
	Fs afero.Fs
	// Home returns the directory "~" expands to.
	Home func() string

	MaxTokens      int
	MaxTokenLength int
}

// NewTokenizer creates a tokenizer with the default limits.
func NewTokenizer(fs afero.Fs, home func() string) *Tokenizer {
	return &Tokenizer{
		Fs:             fs,
		Home:           home,
		MaxTokens:      DefaultMaxTokens,
		MaxTokenLength: DefaultMaxTokenLength,
	}
}

func (t *Tokenizer) maxTokens() int {
	if t.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return t.MaxTokens
}

func (t *Tokenizer) maxTokenLength() int {
	if t.MaxTokenLength <= 0 {
		return DefaultMaxTokenLength
	}
	return t.MaxTokenLength
}

// Tokenize splits the line into classified tokens. Tokenizing stops without
// an error once MaxTokens tokens are produced or a word grows past
// MaxTokenLength bytes; that word is kept cut to MaxTokenLength. A word of
// exactly MaxTokenLength bytes is not cut.
func (t *Tokenizer) Tokenize(line string) Tokens {
	var (
		out     Tokens
		word    strings.Builder
		inWord  bool
		quoted  bool
		quoteCh byte
	)

	// emit finishes the current word; it returns false once the token
	// ceiling is reached.
	emit := func() bool {
		if !inWord {
			return true
		}
		text := word.String()
		word.Reset()
		inWord = false

		if quoted {
			quoted = false
			out = append(out, Token{Text: text, Op: Constant})
			return len(out) < t.maxTokens()
		}

		if op := classify(text); op != Constant {
			out = append(out, Token{Text: text, Op: op})
			return len(out) < t.maxTokens()
		}

		for _, expanded := range t.expand(text) {
			if len(out) >= t.maxTokens() {
				return false
			}
			out = append(out, Token{Text: expanded, Op: Constant})
		}
		return len(out) < t.maxTokens()
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoteCh != 0:
			if c == quoteCh {
				quoteCh = 0
				continue
			}
			word.WriteByte(c)
		case isQuote(c):
			quoteCh = c
			quoted = true
			inWord = true
			continue
		case isDelimiter(c):
			if !emit() {
				return out
			}
			continue
		default:
			word.WriteByte(c)
			inWord = true
		}

		if word.Len() > t.maxTokenLength() {
			kept := word.String()[:t.maxTokenLength()]
			word.Reset()
			word.WriteString(kept)
			emit()
			return out
		}
	}

	// An unterminated quote runs to the end of the line.
	emit()
	return out
}

// expand performs tilde and glob expansion on an unquoted word.
func (t *Tokenizer) expand(word string) []string {
	if t.Home != nil {
		switch {
		case word == "~":
			word = t.Home()
		case strings.HasPrefix(word, "~/"):
			word = filepath.Join(t.Home(), word[2:])
		}
	}

	if t.Fs == nil || !hasGlobMeta(word) {
		return []string{word}
	}

	matches, err := afero.Glob(t.Fs, word)
	if err != nil || len(matches) == 0 {
		return []string{word}
	}
	sort.Strings(matches)
	return matches
}
