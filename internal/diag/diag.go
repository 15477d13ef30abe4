// Package diag implements the diagnostics taxonomy of §7: diagnostics are
// never raised as exceptions across pass boundaries, they are appended to
// a Program's flat alert lists.
package diag

import (
	"fmt"

	"jacc/internal/source"
)

// Kind is the closed set of diagnostic kinds.
type Kind int

const (
	SyntaxError Kind = iota
	ResolutionError
	DuplicateDefinition
	UnmatchedImpl
	Cancelled
	InternalError

	// Warning variants: non-fatal equivalents, recoverable.
	SyntaxWarning
	ResolutionWarning
	DuplicateDefinitionWarning
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "SyntaxError"
	case ResolutionError:
		return "ResolutionError"
	case DuplicateDefinition:
		return "DuplicateDefinition"
	case UnmatchedImpl:
		return "UnmatchedImpl"
	case Cancelled:
		return "Cancelled"
	case InternalError:
		return "InternalError"
	case SyntaxWarning:
		return "SyntaxWarning"
	case ResolutionWarning:
		return "ResolutionWarning"
	case DuplicateDefinitionWarning:
		return "DuplicateDefinitionWarning"
	default:
		return "Unknown"
	}
}

// IsWarning reports whether a Kind is a non-fatal variant.
func (k Kind) IsWarning() bool {
	switch k {
	case SyntaxWarning, ResolutionWarning, DuplicateDefinitionWarning:
		return true
	default:
		return false
	}
}

// Alert is one diagnostic: (kind, file, line:col, message[, hint]), per §7.
type Alert struct {
	Kind    Kind
	File    string
	Span    source.Span
	Message string
	Hint    string
}

// New builds an Alert anchored at a span.
func New(kind Kind, span source.Span, format string, args ...interface{}) Alert {
	file := "<unknown>"
	if span.Src != nil {
		file = span.Src.Path
	}
	return Alert{
		Kind:    kind,
		File:    file,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithHint attaches a hint to a copy of the alert.
func (a Alert) WithHint(hint string) Alert {
	a.Hint = hint
	return a
}

func (a Alert) String() string {
	loc := fmt.Sprintf("%d:%d", a.Span.StartLine, a.Span.StartCol)
	if a.Hint != "" {
		return fmt.Sprintf("%s: %s:%s: %s (hint: %s)", a.Kind, a.File, loc, a.Message, a.Hint)
	}
	return fmt.Sprintf("%s: %s:%s: %s", a.Kind, a.File, loc, a.Message)
}
