// Package crud classifies call sites as persistence operations and queries.
package crud

import (
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

// Finder recognizes the persistence calls of one data-access API. Every
// predicate sees the resolved receiver type, the method name and the
// argument expressions as written.
type Finder interface {
	Name() string
	IsCreateOperation(receiverType, method string) bool
	IsReadOperation(receiverType, method string) bool
	IsUpdateOperation(receiverType, method string) bool
	IsDeleteOperation(receiverType, method string) bool
	IsReadQuery(receiverType, method string, args []string) bool
	IsWriteQuery(receiverType, method string, args []string) bool
	IsNamedQuery(receiverType, method string, args []string) bool
}

// Classifier evaluates finders in order; the first match of each category wins.
type Classifier struct {
	finders []Finder
}

// New creates a classifier over the given finders.
func New(finders ...Finder) *Classifier {
	return &Classifier{finders: finders}
}

// Default creates a classifier over JPA, Hibernate, JDBC and Spring Data, in that order.
func Default() *Classifier {
	return New(JPA{}, Hibernate{}, JDBC{}, SpringData{})
}

// Operation returns the CRUD operation a call performs, if any. Checks run in
// create, read, update, delete order.
func (c *Classifier) Operation(receiverType, method string) (symtab.CRUDOperationType, bool) {
	for _, f := range c.finders {
		switch {
		case f.IsCreateOperation(receiverType, method):
			return symtab.CRUDCreate, true
		case f.IsReadOperation(receiverType, method):
			return symtab.CRUDRead, true
		case f.IsUpdateOperation(receiverType, method):
			return symtab.CRUDUpdate, true
		case f.IsDeleteOperation(receiverType, method):
			return symtab.CRUDDelete, true
		}
	}
	return "", false
}

// Query returns the kind of query a call issues, if any. Checks run in read,
// write, named order.
func (c *Classifier) Query(receiverType, method string, args []string) (symtab.CRUDQueryType, bool) {
	for _, f := range c.finders {
		switch {
		case f.IsReadQuery(receiverType, method, args):
			return symtab.QueryRead, true
		case f.IsWriteQuery(receiverType, method, args):
			return symtab.QueryWrite, true
		case f.IsNamedQuery(receiverType, method, args):
			return symtab.QueryNamed, true
		}
	}
	return "", false
}

// Tag attaches the operation and query a call site performs, stamped with the
// line the call starts on.
func (c *Classifier) Tag(site *symtab.CallSite) {
	if op, ok := c.Operation(site.ReceiverType, site.MethodName); ok {
		site.CRUDOperation = &symtab.CRUDOperation{
			LineNumber:    site.StartLine,
			OperationType: op,
		}
	}
	if q, ok := c.Query(site.ReceiverType, site.MethodName, site.ArgumentExpr); ok {
		args := make([]string, len(site.ArgumentExpr))
		copy(args, site.ArgumentExpr)
		site.CRUDQuery = &symtab.CRUDQuery{
			LineNumber:     site.StartLine,
			QueryArguments: args,
			QueryType:      q,
		}
	}
}

// statementKind returns the leading SQL or JPQL keyword of the first
// argument when it is a string literal, upper-cased.
func statementKind(args []string) string {
	if len(args) == 0 {
		return ""
	}
	lit := strings.TrimSpace(args[0])
	if !strings.HasPrefix(lit, `"`) {
		return ""
	}
	lit = strings.TrimLeft(strings.Trim(lit, `"`), " \t\n(")
	if lit == "" {
		return ""
	}
	word := strings.FieldsFunc(lit, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '('
	})[0]
	return strings.ToUpper(word)
}

func isReadStatement(args []string) bool {
	switch statementKind(args) {
	case "SELECT", "WITH", "FROM":
		return true
	}
	return false
}

func isWriteStatement(args []string) bool {
	switch statementKind(args) {
	case "INSERT", "UPDATE", "DELETE", "MERGE":
		return true
	}
	return false
}

func receiverIs(receiverType string, names ...string) bool {
	simple := symtab.SimpleName(receiverType)
	for _, n := range names {
		if simple == n {
			return true
		}
	}
	return false
}

func oneOf(method string, names ...string) bool {
	for _, n := range names {
		if method == n {
			return true
		}
	}
	return false
}

func hasAnyPrefix(method string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}
