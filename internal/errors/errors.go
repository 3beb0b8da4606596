// Package errors classifies the failures of an analysis run. Resolution and
// parse failures degrade results; call graph, usage and configuration
// failures stop the phase that hit them.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the category of an error.
type Kind int

const (
	KindResolution Kind = iota
	KindParse
	KindCallGraph
	KindUnknownFramework
	KindBuild
	KindConfig
	KindStorage
	KindInternal
)

// Severity is how much of the run an error invalidates.
type Severity int

const (
	// SeverityLow - recovered locally, results are less precise
	SeverityLow Severity = iota
	// SeverityMedium - a step was skipped, the run continues
	SeverityMedium
	// SeverityHigh - a phase failed, results of other phases stay valid
	SeverityHigh
	// SeverityCritical - the run cannot continue
	SeverityCritical
)

// Error is a classified error with optional context.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds a key/value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindCallGraph})
// tests the category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsFatal reports whether the error should stop the run.
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString renders the error with its kind, severity and context.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s\n", e.Severity, e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&sb, "Caused by: %v\n", e.Cause)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
		}
	}
	return sb.String()
}

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "RESOLUTION"
	case KindParse:
		return "PARSE"
	case KindCallGraph:
		return "CALL_GRAPH"
	case KindUnknownFramework:
		return "UNKNOWN_FRAMEWORK"
	case KindBuild:
		return "BUILD"
	case KindConfig:
		return "CONFIG"
	case KindStorage:
		return "STORAGE"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// New creates an error.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(err error, kind Kind, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Severity: severity, Message: message, Cause: err}
}

// CallGraphError reports a call graph that could not be built. The symbol
// table of the run is still valid.
func CallGraphError(err error, message string) *Error {
	if err == nil {
		return New(KindCallGraph, SeverityHigh, message)
	}
	return Wrap(err, KindCallGraph, SeverityHigh, message)
}

// CallGraphErrorf is CallGraphError with formatting and no cause.
func CallGraphErrorf(format string, args ...any) *Error {
	return New(KindCallGraph, SeverityHigh, fmt.Sprintf(format, args...))
}

// UsageError reports a request for a framework without entrypoint rules.
func UsageError(err error) *Error {
	return Wrap(err, KindUnknownFramework, SeverityCritical, "invalid framework selection")
}

// BuildError reports a build tool failure; the run continues without a classpath.
func BuildError(err error, message string) *Error {
	return Wrap(err, KindBuild, SeverityMedium, message)
}

// ConfigError reports invalid configuration.
func ConfigError(message string) *Error {
	return New(KindConfig, SeverityCritical, message)
}

// ConfigErrorf is ConfigError with formatting.
func ConfigErrorf(format string, args ...any) *Error {
	return New(KindConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// StorageError wraps a database failure.
func StorageError(err error, message string) *Error {
	return Wrap(err, KindStorage, SeverityHigh, message)
}

// IsFatal reports whether err, or any error it wraps, is fatal.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return KindInternal, false
}

// Is is errors.Is, re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
