package callgraph

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/codeanalyzer/internal/symtab"
)

var primitiveDescriptors = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

var primitiveCodes = map[string]string{
	"byte":    "B",
	"char":    "C",
	"double":  "D",
	"float":   "F",
	"int":     "I",
	"long":    "J",
	"short":   "S",
	"boolean": "Z",
	"void":    "V",
}

// ParseMethodDescriptor returns the Java type names of the parameters and the
// return type of a JVM method descriptor such as (Ljava/lang/String;[I)V.
// Nested class separators are rendered as dots.
func ParseMethodDescriptor(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: %q does not start with (", ErrBadDescriptor, desc)
	}
	params := []string{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		name, next, err := parseFieldType(desc, i)
		if err != nil {
			return nil, "", err
		}
		params = append(params, name)
		i = next
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("%w: %q has no closing )", ErrBadDescriptor, desc)
	}
	ret, next, err := parseFieldType(desc, i+1)
	if err != nil {
		return nil, "", err
	}
	if next != len(desc) {
		return nil, "", fmt.Errorf("%w: trailing characters in %q", ErrBadDescriptor, desc)
	}
	return params, ret, nil
}

func parseFieldType(desc string, i int) (string, int, error) {
	dims := 0
	for i < len(desc) && desc[i] == '[' {
		dims++
		i++
	}
	if i >= len(desc) {
		return "", 0, fmt.Errorf("%w: %q ends inside a type", ErrBadDescriptor, desc)
	}

	var name string
	switch c := desc[i]; c {
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return "", 0, fmt.Errorf("%w: unterminated class name in %q", ErrBadDescriptor, desc)
		}
		name = JavaName(desc[i+1 : i+end])
		i += end + 1
	default:
		prim, ok := primitiveDescriptors[c]
		if !ok || (c == 'V' && dims > 0) {
			return "", 0, fmt.Errorf("%w: unexpected %q in %q", ErrBadDescriptor, c, desc)
		}
		name = prim
		i++
	}
	return name + strings.Repeat("[]", dims), i, nil
}

// JavaName converts a JVM internal class name to the dotted form used by the
// symbol table: org/example/Outer$Inner becomes org.example.Outer.Inner.
func JavaName(internal string) string {
	if strings.HasPrefix(internal, "L") && strings.HasSuffix(internal, ";") {
		internal = internal[1 : len(internal)-1]
	}
	return strings.NewReplacer("/", ".", "$", ".").Replace(internal)
}

// MethodDescriptor renders a JVM method descriptor from Java type names.
// internalName maps a qualified class name to its JVM internal name.
func MethodDescriptor(params []string, ret string, internalName func(string) string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(FieldDescriptor(p, internalName))
	}
	b.WriteByte(')')
	if ret == "" {
		ret = "void"
	}
	b.WriteString(FieldDescriptor(ret, internalName))
	return b.String()
}

// FieldDescriptor renders the descriptor of one Java type name. Type
// arguments are erased and wildcards fall back to java.lang.Object.
func FieldDescriptor(typ string, internalName func(string) string) string {
	typ = strings.TrimSpace(symtab.EraseTypeArguments(typ))
	dims := 0
	for strings.HasSuffix(typ, "[]") {
		dims++
		typ = strings.TrimSpace(strings.TrimSuffix(typ, "[]"))
	}
	prefix := strings.Repeat("[", dims)

	if code, ok := primitiveCodes[typ]; ok {
		return prefix + code
	}
	if typ == "" || strings.HasPrefix(typ, "?") {
		typ = "java.lang.Object"
	}
	if internalName == nil {
		internalName = DefaultInternalName
	}
	return prefix + "L" + internalName(typ) + ";"
}

// DefaultInternalName treats every dot as a package separator.
func DefaultInternalName(fqn string) string {
	return strings.ReplaceAll(fqn, ".", "/")
}
