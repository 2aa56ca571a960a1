package analyzer

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultContextLines is the number of lines shown on each side of a finding
const DefaultContextLines = 2

// Locate returns the 1-based line containing the byte offset
func Locate(source string, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	return strings.Count(source[:offset], "\n") + 1
}

// RenderSnippet renders the lines around line, marking the target line with ">>> ".
// Lines outside the source are clipped.
func RenderSnippet(source string, line, contextLines int) string {
	if source == "" {
		return ""
	}
	return renderLines(strings.Split(source, "\n"), line, contextLines)
}

func renderLines(lines []string, line, contextLines int) string {
	if line < 1 {
		return ""
	}
	if contextLines < 0 {
		contextLines = 0
	}

	start := max(0, line-contextLines-1)
	end := min(len(lines), line+contextLines)
	if start >= end {
		return ""
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		n := i + 1
		if n == line {
			b.WriteString(">>> ")
		} else {
			b.WriteString("    ")
		}
		b.WriteString(strconv.Itoa(n))
		b.WriteString(": ")
		b.WriteString(lines[i])
	}
	return b.String()
}

// lineIndex maps offsets to lines without rescanning the source for every match
type lineIndex struct {
	newlines []int
	lines    []string
}

func newLineIndex(source string) *lineIndex {
	idx := &lineIndex{lines: strings.Split(source, "\n")}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			idx.newlines = append(idx.newlines, i)
		}
	}
	return idx
}

// line returns the same value as Locate
func (l *lineIndex) line(offset int) int {
	// newlines strictly before offset
	return sort.SearchInts(l.newlines, offset) + 1
}

func (l *lineIndex) snippet(line, contextLines int) string {
	return renderLines(l.lines, line, contextLines)
}
