package parser

import (
	"strings"

	"github.com/steplint-dev/steplint/pkg/token"
)

// The scanners below compute the exact end offset of a node's literal source
// representation. The YAML decoder only reports where a node starts; the end
// is recovered by re-scanning the original text according to the node's style.

// scanDoubleQuoted returns the offset just past the closing quote of a
// double-quoted scalar starting at start.
func scanDoubleQuoted(text string, start int) int {
	if start >= len(text) || text[start] != '"' {
		return start
	}
	i := start + 1
	for i < len(text) {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i + 1
		}
		i++
	}
	return len(text)
}

// scanSingleQuoted returns the offset just past the closing quote of a
// single-quoted scalar. A doubled quote ('') escapes a literal quote.
func scanSingleQuoted(text string, start int) int {
	if start >= len(text) || text[start] != '\'' {
		return start
	}
	i := start + 1
	for i < len(text) {
		if text[i] == '\'' {
			if i+1 < len(text) && text[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(text)
}

// scanPlain returns the end offset of a plain-style scalar. Single-line plain
// scalars reproduce their value byte for byte, so a direct match is tried
// first. When the value was folded the literal text is recovered by a line
// scan: in block context the scalar continues onto following lines while they
// are indented deeper than the content of the line it starts on.
func scanPlain(ix *token.Index, start int, value string, inFlow bool) int {
	text := ix.Text()
	if value == "" {
		return start
	}
	if start+len(value) <= len(text) && text[start:start+len(value)] == value {
		return start + len(value)
	}
	end := start
	for end < len(text) && text[end] != '\n' {
		ch := text[end]
		if inFlow && (ch == ',' || ch == ']' || ch == '}') {
			break
		}
		if ch == '#' && end > start && (text[end-1] == ' ' || text[end-1] == '\t') {
			break
		}
		end++
	}
	atComment := end < len(text) && text[end] != '\n'
	for end > start && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	if inFlow || atComment {
		return end
	}

	startLine := ix.Pos(start).Line
	baseIndent := contentIndent(ix.LineText(startLine))
	last := end
	for line := startLine + 1; line <= ix.LineCount(); line++ {
		lt := ix.LineText(line)
		if strings.TrimSpace(lt) == "" {
			continue
		}
		if lineIndent(lt) <= baseIndent {
			break
		}
		content := lt
		if i := commentStart(lt); i >= 0 {
			content = lt[:i]
		}
		trimmed := strings.TrimRight(content, " \t")
		if strings.TrimSpace(trimmed) == "" {
			break
		}
		last = ix.LineStart(line) + len(trimmed)
		if len(content) != len(lt) {
			break
		}
	}
	return last
}

// scanBlockScalar returns the end offset of a literal (|) or folded (>) block
// scalar whose header indicator sits at start on headerLine. Content lines
// belong to the block while they are blank or indented deeper than the line
// the header appears on.
func scanBlockScalar(ix *token.Index, headerLine, start int) int {
	text := ix.Text()
	end := start
	for end < len(text) && text[end] != '\n' {
		end++
	}
	headerIndent := lineIndent(ix.LineText(headerLine))
	last := end
	for line := headerLine + 1; line <= ix.LineCount(); line++ {
		lt := ix.LineText(line)
		if strings.TrimSpace(lt) == "" {
			continue
		}
		if lineIndent(lt) <= headerIndent {
			break
		}
		trimmed := strings.TrimRight(lt, " \t")
		last = ix.LineStart(line) + len(trimmed)
	}
	return last
}

// scanFlow returns the offset just past the bracket matching the one at
// start, skipping over quoted strings.
func scanFlow(text string, start int) int {
	if start >= len(text) {
		return start
	}
	depth := 0
	i := start
	for i < len(text) {
		switch text[i] {
		case '\'':
			i = scanSingleQuoted(text, i)
			continue
		case '"':
			i = scanDoubleQuoted(text, i)
			continue
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return len(text)
}

func lineIndent(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' {
			return i
		}
	}
	return len(line)
}

// contentIndent is lineIndent with leading sequence entry markers ("- ")
// counted as indentation, matching where nested content must align.
func contentIndent(line string) int {
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ':
			i++
		case line[i] == '-' && (i+1 >= len(line) || line[i+1] == ' '):
			i++
		default:
			return i
		}
	}
	return i
}

// commentStart returns the byte index of the first comment marker on a line,
// or -1. A '#' only opens a comment after whitespace or at column one.
func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}
		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return i
		}
	}
	return -1
}
