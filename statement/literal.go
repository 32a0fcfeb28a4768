package statement

import "strings"

// Quoting selects how quoted literals are delimited.
type Quoting uint8

const (
	// StandardQuoting ends a literal at its closing quote; a doubled quote
	// ('it''s') reads as a close followed by a reopen.
	StandardQuoting Quoting = iota
	// BackslashQuoting also treats a backslash as escaping the next byte
	// inside a literal ('it\'s'), as MySQL does by default.
	BackslashQuoting
)

// String returns the quoting name.
func (q Quoting) String() string {
	if q == BackslashQuoting {
		return "backslash"
	}
	return "standard"
}

// literal tracks whether a scan position is inside a quoted literal.
type literal struct {
	quoting Quoting
	quote   byte
	escaped bool
}

// next consumes c and reports whether it belongs to a quoted literal,
// opening and closing quotes included.
func (l *literal) next(c byte) bool {
	switch {
	case l.quote == 0:
		if c == '\'' || c == '"' {
			l.quote = c
			return true
		}
		return false
	case l.escaped:
		l.escaped = false
	case l.quoting == BackslashQuoting && c == '\\':
		l.escaped = true
	case c == l.quote:
		l.quote = 0
	}
	return true
}

// stripComment cuts line at a "--" comment outside quoted literals. The
// literal state carries across lines so multi-line literals are honoured.
func (l *literal) stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if l.next(line[i]) {
			continue
		}
		if line[i] == '-' && i+1 < len(line) && line[i+1] == '-' {
			return line[:i]
		}
	}
	return line
}

// firstContent returns the 1-based line of the first byte of text that is
// not blank space, a "--" line comment or a "/* */" block comment, or 0
// when there is none. An unterminated block comment counts as content.
func firstContent(text string) int {
	line := 1
	for i := 0; i < len(text); {
		rest := text[i:]
		switch c := text[i]; {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(rest, "--"):
			j := strings.IndexByte(rest, '\n')
			if j < 0 {
				return 0
			}
			i += j
		case strings.HasPrefix(rest, "/*"):
			j := strings.Index(rest[2:], "*/")
			if j < 0 {
				return line
			}
			line += strings.Count(rest[:j+2], "\n")
			i += j + 4
		default:
			return line
		}
	}
	return 0
}
