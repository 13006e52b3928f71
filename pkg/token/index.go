package token

import (
	"strings"
	"unicode/utf8"
)

// Index maps between byte offsets and line/column positions for one file's text.
// Columns count runes, matching the positions reported by the YAML decoder.
type Index struct {
	text  string
	lines []int // byte offset of the start of each line, lines[0] == 0
}

// NewIndex builds a line index over text.
func NewIndex(text string) *Index {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Index{text: text, lines: lines}
}

// Text returns the indexed source text.
func (ix *Index) Text() string { return ix.text }

// Offset converts a 1-based line/rune-column pair to a byte offset.
// Out-of-range positions clamp to the nearest valid offset.
func (ix *Index) Offset(line, column int) int {
	if line < 1 {
		return 0
	}
	if line > len(ix.lines) {
		return len(ix.text)
	}
	off := ix.lines[line-1]
	for n := column - 1; n > 0 && off < len(ix.text) && ix.text[off] != '\n'; n-- {
		_, size := utf8.DecodeRuneInString(ix.text[off:])
		off += size
	}
	return off
}

// LineStart returns the byte offset of the first character of a 1-based line.
func (ix *Index) LineStart(line int) int {
	if line < 1 {
		return 0
	}
	if line > len(ix.lines) {
		return len(ix.text)
	}
	return ix.lines[line-1]
}

// Pos converts a byte offset to a Position.
func (ix *Index) Pos(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(ix.text) {
		offset = len(ix.text)
	}
	// Binary search for the containing line.
	lo, hi := 0, len(ix.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if ix.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	column := utf8.RuneCountInString(ix.text[ix.lines[lo]:offset]) + 1
	return Position{Line: lo + 1, Column: column, Offset: offset}
}

// Span builds a Span from two byte offsets.
func (ix *Index) Span(start, end int) Span {
	return Span{Start: ix.Pos(start), End: ix.Pos(end)}
}

// Slice returns the source text covered by the span.
func (ix *Index) Slice(s Span) string {
	start, end := s.Start.Offset, s.End.Offset
	if start < 0 {
		start = 0
	}
	if end > len(ix.text) {
		end = len(ix.text)
	}
	if start > end {
		return ""
	}
	return ix.text[start:end]
}

// LineText returns the text of a 1-based line without its trailing newline.
func (ix *Index) LineText(line int) string {
	if line < 1 || line > len(ix.lines) {
		return ""
	}
	start := ix.lines[line-1]
	rest := ix.text[start:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// LineCount returns the number of lines in the indexed text.
func (ix *Index) LineCount() int { return len(ix.lines) }
