// Package entrypoint decides whether a type or callable is externally
// triggered: a web handler, message listener, scheduled job or similar.
package entrypoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnknownFramework is returned when a classifier is requested for a
// framework without rules.
var ErrUnknownFramework = errors.New("unknown framework")

// TypeView is what rules may inspect about a type declaration.
type TypeView struct {
	Name        string
	IsClass     bool     // Class or interface declaration, not an enum, record or annotation
	Annotations []string // As written, for example @WebServlet("/x")
	Extends     []string // Resolved, or as written when unresolvable
	Implements  []string // Resolved, or as written when unresolvable
	Methods     []MethodView
	Ancestors   func() ([]string, error) // Resolved, transitive supertypes
}

// MethodView is what rules may inspect about a method or constructor.
type MethodView struct {
	Name           string
	Annotations    []string
	ParameterTypes []string // Resolved, or as written when unresolvable
	Parent         *TypeView
}

// Rule recognizes the entrypoints of one framework.
type Rule interface {
	Name() string
	IsEntrypointClass(t TypeView) bool
	IsEntrypointMethod(m MethodView) bool
}

// registered lists every known rule in evaluation order.
var registered = []Rule{
	Jakarta{},
	Struts{},
	Spring{},
	Camel{},
	JaxRS{},
}

// Frameworks returns the names of every supported framework.
func Frameworks() []string {
	names := make([]string, len(registered))
	for i, r := range registered {
		names[i] = r.Name()
	}
	return names
}

// Classifier is an ordered disjunction over rules. The order decides only which
// rule is reported as the match.
type Classifier struct {
	rules  []Rule
	logger *logrus.Logger
}

// New creates a classifier over the given rules.
func New(logger *logrus.Logger, rules ...Rule) *Classifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &Classifier{rules: rules, logger: logger}
}

// Default creates a classifier over every supported framework.
func Default(logger *logrus.Logger) *Classifier {
	return New(logger, registered...)
}

// ForFrameworks creates a classifier over the named frameworks. Names are
// matched case-insensitively; an empty list selects every framework.
func ForFrameworks(logger *logrus.Logger, names []string) (*Classifier, error) {
	if len(names) == 0 {
		return Default(logger), nil
	}
	var rules []Rule
	for _, name := range names {
		rule, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownFramework, name, strings.Join(Frameworks(), ", "))
		}
		rules = append(rules, rule)
	}
	return New(logger, rules...), nil
}

func lookup(name string) (Rule, bool) {
	for _, r := range registered {
		if strings.EqualFold(r.Name(), strings.TrimSpace(name)) {
			return r, true
		}
	}
	return nil, false
}

// Rules returns the rules of the classifier in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// IsEntrypointClass reports whether any rule accepts the type.
func (c *Classifier) IsEntrypointClass(t TypeView) bool {
	t.Ancestors = c.logged(t)
	for _, r := range c.rules {
		if r.IsEntrypointClass(t) {
			c.logger.WithFields(logrus.Fields{"type": t.Name, "rule": r.Name()}).Debug("entrypoint class")
			return true
		}
	}
	return false
}

// IsEntrypointMethod reports whether any rule accepts the method.
func (c *Classifier) IsEntrypointMethod(m MethodView) bool {
	if m.Parent != nil {
		parent := *m.Parent
		parent.Ancestors = c.logged(parent)
		m.Parent = &parent
	}
	for _, r := range c.rules {
		if r.IsEntrypointMethod(m) {
			c.logger.WithFields(logrus.Fields{"method": m.Name, "rule": r.Name()}).Debug("entrypoint method")
			return true
		}
	}
	return false
}

// logged wraps the ancestor lookup of t so that failures are reported once
// per call as warnings.
func (c *Classifier) logged(t TypeView) func() ([]string, error) {
	lookup := t.Ancestors
	return func() ([]string, error) {
		if lookup == nil {
			return nil, fmt.Errorf("no ancestor information for %s", t.Name)
		}
		ancestors, err := lookup()
		if err != nil {
			c.logger.WithField("type", t.Name).WithError(err).Warn("could not resolve ancestors")
		}
		return ancestors, err
	}
}

// annotationName strips the @ and any arguments: @a.b.Path("/x") -> a.b.Path.
func annotationName(annotation string) string {
	name := strings.TrimPrefix(strings.TrimSpace(annotation), "@")
	if i := strings.Index(name, "("); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// anyContains reports whether any value contains any of the needles.
func anyContains(values []string, needles ...string) bool {
	for _, v := range values {
		for _, n := range needles {
			if strings.Contains(v, n) {
				return true
			}
		}
	}
	return false
}

func annotationNames(annotations []string) []string {
	out := make([]string, len(annotations))
	for i, a := range annotations {
		out[i] = annotationName(a)
	}
	return out
}

// ancestorsContain reports whether any resolved ancestor contains a needle.
// Unresolvable ancestors count as no match.
func ancestorsContain(t TypeView, needles ...string) bool {
	if t.Ancestors == nil {
		return false
	}
	ancestors, err := t.Ancestors()
	if err != nil {
		return false
	}
	return anyContains(ancestors, needles...)
}

// simpleName drops the qualifier and type arguments of a written type.
func simpleName(t string) string {
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}
