package shell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected error
		index    int
	}{
		"simple":           {line: "ls -l", expected: nil},
		"pipeline":         {line: "ls | sort | wc -c", expected: nil},
		"redirects":        {line: "sort < in > out 2> err", expected: nil},
		"background":       {line: "sleep 100 &", expected: nil},
		"background redir": {line: "sleep 100 > log &", expected: nil},
		"conditionals":     {line: "true && echo yes || echo no", expected: nil},
		"redirect per link": {
			line:     "echo a > f && echo b > g",
			expected: nil,
		},
		"quoted operator": {line: `echo "|"`, expected: nil},

		"empty":               {line: "", expected: ErrEmptyLine, index: -1},
		"leading pipe":        {line: "| ls", expected: ErrLeadingOperator, index: 0},
		"leading redirect":    {line: "> out ls", expected: ErrLeadingOperator, index: 0},
		"leading background":  {line: "& ls", expected: ErrLeadingOperator, index: 0},
		"leading and":         {line: "&& ls", expected: ErrLeadingOperator, index: 0},
		"trailing pipe":       {line: "ls |", expected: ErrTrailingOperator, index: 1},
		"trailing redirect":   {line: "ls >", expected: ErrTrailingOperator, index: 1},
		"trailing or":         {line: "ls ||", expected: ErrTrailingOperator, index: 1},
		"inner background":    {line: "ls & sort", expected: ErrMisplacedBackground, index: 1},
		"duplicate stdout":    {line: "ls > a > b", expected: ErrDuplicateRedirect, index: 3},
		"duplicate append":    {line: "ls > a >> b", expected: ErrDuplicateRedirect, index: 3},
		"redirect to pipe":    {line: "ls > | sort", expected: ErrMissingFilename, index: 2},
		"redirect background": {line: "ls > &", expected: ErrMissingFilename, index: 2},
		"double pipe stage":   {line: "ls | | sort", expected: ErrEmptyStage, index: 2},
		"pipe then and":       {line: "ls | && sort", expected: ErrEmptyStage, index: 2},
		"redirect only stage": {line: "ls | > out", expected: ErrEmptyStage, index: 3},
		"background pipeline": {line: "ls | sort &", expected: ErrBackgroundPipeline, index: 3},
	}

	tokenizer := NewTokenizer(nil, nil)
	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			err := Validate(tokenizer.Tokenize(tc.line))

			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}

			var syntaxErr *SyntaxError
			if assert.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %v", err) {
				assert.True(t, errors.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)
				assert.Equal(t, tc.index, syntaxErr.Index)
			}
		})
	}
}

func TestSyntaxError_Error(t *testing.T) {
	tokenizer := NewTokenizer(nil, nil)

	err := Validate(tokenizer.Tokenize("| ls"))

	assert.EqualError(t, err, "syntax error near unexpected token `|': command can't start with an operator")
	assert.EqualError(t, Validate(nil), "syntax error: empty command")
}
