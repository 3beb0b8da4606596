package symtab

import "strings"

// ConstructorName is the method name every constructor signature key uses.
const ConstructorName = "<init>"

// StaticInitializerName is the JVM name of a class initializer.
const StaticInitializerName = "<clinit>"

// SignatureKey renders the canonical "name(T1, T2)" key of a callable.
func SignatureKey(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// SplitSignature splits a signature key into its method name and parameter types.
// Commas nested inside type arguments do not split parameters.
func SplitSignature(sig string) (string, []string) {
	open := strings.Index(sig, "(")
	if open < 0 {
		return sig, nil
	}
	name := sig[:open]
	end := strings.LastIndex(sig, ")")
	if end < open {
		end = len(sig)
	}
	inner := strings.TrimSpace(sig[open+1 : end])
	if inner == "" {
		return name, []string{}
	}
	return name, SplitTopLevel(inner, ',')
}

// SplitTopLevel splits s on sep, ignoring separators nested in <>, () or [].
// Every part is trimmed.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

// EraseTypeArguments removes every <...> section from a type name.
func EraseTypeArguments(t string) string {
	if !strings.Contains(t, "<") {
		return t
	}
	var b strings.Builder
	depth := 0
	for i := 0; i < len(t); i++ {
		switch c := t[i]; {
		case c == '<':
			depth++
		case c == '>':
			depth--
		case depth == 0:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SimpleName returns the unqualified name of a type, keeping array brackets and
// dropping type arguments.
func SimpleName(t string) string {
	t = EraseTypeArguments(t)
	if i := strings.LastIndexAny(t, ".$"); i >= 0 {
		return t[i+1:]
	}
	return t
}

// PackageOf returns the package part of a fully qualified top-level type name.
func PackageOf(fqn string) string {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[:i]
	}
	return ""
}
