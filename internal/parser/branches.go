package parser

import sitter "github.com/tree-sitter/go-tree-sitter"

// Branches counts the decision points of a piece of code.
type Branches struct {
	Conditionals int // if statements, loops and ternaries
	SwitchCases  int // case and default labels across every switch
	Catches      int
}

// Complexity returns the cyclomatic complexity the counts describe.
func (b Branches) Complexity() int {
	return 1 + b.Conditionals + b.SwitchCases + b.Catches
}

// CountBranches counts the decision points under n, nested lambdas and
// anonymous classes included.
func CountBranches(n *sitter.Node) Branches {
	var b Branches
	Walk(n, func(c *sitter.Node) bool {
		switch c.Kind() {
		case "if_statement", "do_statement", "for_statement", "enhanced_for_statement",
			"while_statement", "ternary_expression":
			b.Conditionals++
		case "switch_label":
			b.SwitchCases++
		case "catch_clause":
			b.Catches++
		}
		return true
	})
	return b
}
