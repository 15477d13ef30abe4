// Package source holds the immutable byte-buffer backing store for a single
// compiled file, plus lazy offset-to-line/column conversion.
package source

import (
	"fmt"
	"strings"
	"sync"
)

// CodeContext tags a whole source file with the code-context carried by its
// filename suffix (.cl.jac / .sv.jac / .na.jac). Later passes observe this
// tag; nothing in this package interprets it.
type CodeContext uint8

const (
	ContextNone CodeContext = iota
	ContextClient
	ContextServer
	ContextNative
)

func (c CodeContext) String() string {
	switch c {
	case ContextClient:
		return "client"
	case ContextServer:
		return "server"
	case ContextNative:
		return "native"
	default:
		return "none"
	}
}

// ContextFromPath derives a CodeContext from a source path's suffix.
func ContextFromPath(path string) CodeContext {
	switch {
	case strings.HasSuffix(path, ".cl.jac"):
		return ContextClient
	case strings.HasSuffix(path, ".sv.jac"):
		return ContextServer
	case strings.HasSuffix(path, ".na.jac"):
		return ContextNative
	default:
		return ContextNone
	}
}

// Source is an immutable byte buffer for one file plus its module path.
// All spans produced by later stages (lexer, parser) are valid indices into
// exactly one Source.
type Source struct {
	Path    string
	Bytes   []byte
	Context CodeContext

	once       sync.Once
	lineStarts []int // byte offset of the start of each line (0-indexed lines)
}

// New creates a Source from raw bytes and a module path. Decoding is not
// performed here — callers that read from disk are responsible for
// replacing invalid UTF-8 per §5's file-system interaction rule.
func New(bytes []byte, path string) *Source {
	return &Source{
		Path:    path,
		Bytes:   bytes,
		Context: ContextFromPath(path),
	}
}

func (s *Source) buildLineStarts() {
	s.once.Do(func() {
		starts := []int{0}
		for i, b := range s.Bytes {
			if b == '\n' {
				starts = append(starts, i+1)
			}
		}
		s.lineStarts = starts
	})
}

// Position converts a byte offset into a 1-based (line, column) pair.
// Columns are counted in bytes from the start of the line (1-based).
func (s *Source) Position(offset int) (line, col int) {
	s.buildLineStarts()
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Bytes) {
		offset = len(s.Bytes)
	}
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(s.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	lineStart := s.lineStarts[lo]
	return lo + 1, offset - lineStart + 1
}

// Slice returns the bytes covered by a Span. Panics if the span indexes
// outside the buffer — callers must only construct spans from this Source.
func (s *Source) Slice(span Span) []byte {
	return s.Bytes[span.StartOffset:span.EndOffset]
}

// Span is a (source, start-line, start-col, end-line, end-col, start-offset,
// end-offset) location, attached to every token and AST node. Invariant:
// Start <= End, and both offsets index the same Source.
type Span struct {
	Src         *Source
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
	StartOffset int
	EndOffset   int
}

// NewSpan builds a Span from a byte-offset range within src.
func NewSpan(src *Source, startOffset, endOffset int) Span {
	sl, sc := src.Position(startOffset)
	el, ec := src.Position(endOffset)
	return Span{
		Src:         src,
		StartLine:   sl,
		StartCol:    sc,
		EndLine:     el,
		EndCol:      ec,
		StartOffset: startOffset,
		EndOffset:   endOffset,
	}
}

// Join returns the smallest span covering both a and b. Both must share a
// Source.
func Join(a, b Span) Span {
	if a.Src != b.Src {
		panic("source: Join across different Source buffers")
	}
	start := a.StartOffset
	if b.StartOffset < start {
		start = b.StartOffset
	}
	end := a.EndOffset
	if b.EndOffset > end {
		end = b.EndOffset
	}
	return NewSpan(a.Src, start, end)
}

// Text returns the slice of the owning Source that this span covers.
func (sp Span) Text() []byte {
	if sp.Src == nil {
		return nil
	}
	return sp.Src.Slice(sp)
}

func (sp Span) String() string {
	path := "<unknown>"
	if sp.Src != nil {
		path = sp.Src.Path
	}
	if sp.StartLine == sp.EndLine {
		return fmt.Sprintf("%s:%d:%d-%d", path, sp.StartLine, sp.StartCol, sp.EndCol)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", path, sp.StartLine, sp.StartCol, sp.EndLine, sp.EndCol)
}
