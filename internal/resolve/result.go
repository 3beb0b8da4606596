package resolve

import (
	"errors"
	"fmt"
)

// ErrUnresolved is the sentinel every ResolutionError matches with errors.Is.
var ErrUnresolved = errors.New("unresolved")

// ResolutionError describes why a type or expression could not be resolved.
type ResolutionError struct {
	Kind   string // "type" or "expression"
	Text   string // Syntactic text that failed
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s %q: %s", e.Kind, e.Text, e.Reason)
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrUnresolved
}

// Result is the outcome of resolving a type or expression: either a canonical
// name or a resolution error. It never carries both.
type Result struct {
	Name string
	Err  error
}

func resolved(name string) Result {
	return Result{Name: name}
}

func unresolved(kind, text, reason string) Result {
	return Result{Err: &ResolutionError{Kind: kind, Text: text, Reason: reason}}
}

// OK reports whether resolution succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Or returns the resolved name, or fallback when resolution failed.
func (r Result) Or(fallback string) string {
	if r.Err != nil {
		return fallback
	}
	return r.Name
}
