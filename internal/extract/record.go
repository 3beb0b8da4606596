package extract

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/codeanalyzer/internal/parser"
	"github.com/mvp-joe/codeanalyzer/internal/resolve"
	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

func (x *unitExtractor) recordComponents(decl *sitter.Node) []symtab.RecordComponent {
	defaults := x.recordDefaults(decl)
	out := []symtab.RecordComponent{}
	for _, p := range resolve.Params(decl) {
		name := resolve.ParamName(x.u, p)
		comment := x.u.LeadingComment(p)
		if comment == nil {
			comment = &symtab.Comment{Span: symtab.NoSpan()}
		}
		out = append(out, symtab.RecordComponent{
			Comment:      comment,
			Name:         name,
			Type:         x.r.ParamType(x.scope, p),
			Modifiers:    resolve.Modifiers(x.u, p),
			Annotations:  resolve.Annotations(x.u, p),
			DefaultValue: defaults[name],
			IsVarArgs:    p.Kind() == "spread_parameter",
		})
	}
	return out
}

// recordDefaults maps each component assigned by name inside a compact
// constructor to the value of its first such assignment.
func (x *unitExtractor) recordDefaults(decl *sitter.Node) map[string]any {
	defaults := make(map[string]any)
	for _, member := range parser.Members(decl) {
		if member.Kind() != "compact_constructor_declaration" {
			continue
		}
		parser.Walk(member.ChildByFieldName("body"), func(n *sitter.Node) bool {
			if n.Kind() != "assignment_expression" {
				return true
			}
			left := n.ChildByFieldName("left")
			if left == nil || left.Kind() != "identifier" {
				return true
			}
			name := x.u.Text(left)
			if _, seen := defaults[name]; !seen {
				defaults[name] = literalValue(x.u, n.ChildByFieldName("right"))
			}
			return true
		})
	}
	return defaults
}

// literalValue converts a literal to its native value: strings and characters
// without quotes, booleans, float64 and int64 numbers. The null literal is
// nil; any other expression is kept as written.
func literalValue(u *parser.Unit, n *sitter.Node) any {
	if n == nil {
		return nil
	}
	text := u.Text(n)
	switch n.Kind() {
	case "string_literal":
		if strings.HasPrefix(text, `"""`) {
			return strings.TrimSuffix(strings.TrimPrefix(text, `"""`), `"""`)
		}
		return strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`)
	case "character_literal":
		return strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
	case "true":
		return true
	case "false":
		return false
	case "null_literal":
		return nil
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		clean := strings.TrimRight(strings.ReplaceAll(text, "_", ""), "fFdD")
		if v, err := strconv.ParseFloat(clean, 64); err == nil {
			return v
		}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		long := strings.HasSuffix(text, "l") || strings.HasSuffix(text, "L")
		clean := strings.TrimRight(strings.ReplaceAll(text, "_", ""), "lL")
		v, err := strconv.ParseUint(clean, 0, 64)
		if err != nil {
			break
		}
		// Hex, octal and binary int literals are two's complement bit patterns.
		if !long && n.Kind() != "decimal_integer_literal" {
			return int64(int32(uint32(v)))
		}
		return int64(v)
	}
	return text
}
