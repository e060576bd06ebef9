// Package source tracks byte/line/column positions within a source file
// and formats spans for diagnostics.
package source

import (
	"fmt"
	"strings"
)

// Pos is a single location within a source file.
type Pos struct {
	Byte   int
	Line   int // 1-based
	Column int // 1-based
}

// Span is a half-open [Start, End) range within a File.
type Span struct {
	Start Pos
	End   Pos
}

// File holds the original source text and its file name, and can map
// byte offsets back to line/column for diagnostics.
type File struct {
	Name    string
	Content string

	// lineStarts[i] is the byte offset where line i+1 begins.
	lineStarts []int
}

// NewFile builds a File and precomputes line-start offsets.
func NewFile(name, content string) *File {
	f := &File{Name: name, Content: content, lineStarts: []int{0}}
	for i, r := range content {
		if r == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	return f
}

// PosAt converts a byte offset into a Pos.
func (f *File) PosAt(offset int) Pos {
	line := 1
	for i := len(f.lineStarts) - 1; i >= 0; i-- {
		if f.lineStarts[i] <= offset {
			line = i + 1
			return Pos{Byte: offset, Line: line, Column: offset - f.lineStarts[i] + 1}
		}
	}
	return Pos{Byte: offset, Line: 1, Column: offset + 1}
}

// LineText returns the raw text of the given 1-based line number.
func (f *File) LineText(line int) string {
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := len(f.Content)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	if start > end || start > len(f.Content) {
		return ""
	}
	return f.Content[start:end]
}

// String renders a span as "line:column" of its start position.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}

// Caret renders a two-line "source line" + "^~~~ underline" block for the
// span, using the given File for line lookup.
func (s Span) Caret(f *File) string {
	line := f.LineText(s.Start.Line)
	var b strings.Builder
	b.WriteString(line)
	b.WriteByte('\n')
	for i := 1; i < s.Start.Column; i++ {
		if i-1 < len(line) && line[i-1] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	width := s.End.Column - s.Start.Column
	if s.End.Line != s.Start.Line || width <= 0 {
		width = 1
	}
	b.WriteByte('^')
	for i := 1; i < width; i++ {
		b.WriteByte('~')
	}
	return b.String()
}

// Merge returns the smallest span covering both a and b.
func Merge(a, b Span) Span {
	start := a.Start
	if b.Start.Byte < start.Byte {
		start = b.Start
	}
	end := a.End
	if b.End.Byte > end.Byte {
		end = b.End
	}
	return Span{Start: start, End: end}
}
