package stringtest

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Input dedents a raw string literal for use as test input.
//
// A single leading newline and a trailing whitespace-only line are removed,
// then the longest whitespace prefix shared by all non-blank lines is
// stripped. Whitespace-only lines become empty.
//
// Example:
//
//	in := stringtest.Input(`
//		kind: A
//		spec:
//		  group: example.com
//	`) // -> "kind: A\nspec:\n  group: example.com"
func Input(s string) string {
	lines := strings.Split(s, "\n")

	if len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}

	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		lines = lines[:n-1]
	}

	prefix := ""
	first := true

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix = indent
			first = false

			continue
		}

		prefix = commonPrefix(prefix, indent)
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""

			continue
		}

		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return a[:i]
		}
	}

	return a[:n]
}

// StripANSI removes ANSI escape sequences from s, so styled terminal output
// can be compared against plain text.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// JoinLF joins multiple strings with LF line endings.
// Use this to construct expected test output with explicit line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"line1",
//		"line2",
//		"line3",
//	) // -> "line1\nline2\nline3"
func JoinLF(ss ...string) string {
	var sb strings.Builder
	for i, s := range ss {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(s)
	}

	return sb.String()
}
