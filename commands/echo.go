package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/josephlewis42/vmsh/core/vm"
)

var escapes = map[byte]string{
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'\\': `\`,
	'b':  "\b",
	'a':  "\a",
	'f':  "\f",
	'v':  "\v",
}

// unescape expands backslash sequences: the single letter escapes above,
// \0NNN (octal) and \xHH (hex). Anything else is left as written.
func unescape(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}

		next := s[i+1]
		if replacement, ok := escapes[next]; ok {
			out.WriteString(replacement)
			i++
			continue
		}

		var digits string
		var base int
		switch next {
		case '0':
			digits, base = leading(s[i+2:], 3, "01234567"), 8
		case 'x':
			digits, base = leading(s[i+2:], 2, "0123456789abcdefABCDEF"), 16
		}
		if digits == "" && next != '0' {
			out.WriteByte(s[i])
			continue
		}

		val, _ := strconv.ParseUint("0"+digits, base, 8)
		out.WriteByte(byte(val))
		i += 1 + len(digits)
	}
	return out.String()
}

// leading returns up to max bytes from the start of s that are in set.
func leading(s string, max int, set string) string {
	n := 0
	for n < len(s) && n < max && strings.IndexByte(set, s[n]) >= 0 {
		n++
	}
	return s[:n]
}

// Echo is the echo builtin. It writes its operands to stdout joined by single
// spaces and ends the line unless -n is given; -e expands backslash escapes
// in each operand first. It never fails once the flags parse.
func Echo(s *Shell, stdio vm.IO, args []string) vm.Status {
	cmd := &SimpleCommand{
		Use:   "echo [-ne] [ARG] ...",
		Short: "Display a line of text.",
	}

	opts := cmd.Flags()
	noNewline := opts.Bool('n', "do not output the trailing newline")
	escaped := opts.Bool('e', "interpret backslash escapes")

	return cmd.Run(stdio, args, func() vm.Status {
		operands := opts.Args()
		if *escaped {
			for i, arg := range operands {
				operands[i] = unescape(arg)
			}
		}

		line := strings.Join(operands, " ")
		if !*noNewline {
			line += "\n"
		}
		fmt.Fprint(stdio.Stdout, line)
		return vm.StatusContinue
	})
}

func init() {
	addBuiltin("Display a line of text.", Echo, "echo")
}
