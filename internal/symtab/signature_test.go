package symtab

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for signature helpers and entity serialization:
// - SignatureKey joins parameter types with ", "
// - SplitSignature keeps commas nested in type arguments inside one parameter
// - SplitSignature returns an empty (non-nil) list for no-arg signatures
// - EraseTypeArguments and SimpleName strip generics and qualifiers
// - Comments strip delimiters and detect Javadoc
// - Access flags are one-hot
// - Unpopulated optional call-site fields serialize as explicit null

func TestSignatureKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "notEmpty(java.util.Map<?, ?>, java.lang.String)",
		SignatureKey("notEmpty", []string{"java.util.Map<?, ?>", "java.lang.String"}))
	assert.Equal(t, "<init>()", SignatureKey(ConstructorName, nil))
}

func TestSplitSignature(t *testing.T) {
	t.Parallel()

	name, params := SplitSignature("notEmpty(java.util.Map<?, ?>, java.lang.String, java.lang.Object[])")
	assert.Equal(t, "notEmpty", name)
	assert.Equal(t, []string{"java.util.Map<?, ?>", "java.lang.String", "java.lang.Object[]"}, params)

	name, params = SplitSignature("log()")
	assert.Equal(t, "log", name)
	require.NotNil(t, params)
	assert.Empty(t, params)
}

func TestTypeNameHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "java.util.Map", EraseTypeArguments("java.util.Map<java.lang.String, java.util.List<java.lang.Integer>>"))
	assert.Equal(t, "List[]", SimpleName("java.util.List<java.lang.String>[]"))
	assert.Equal(t, "Entry", SimpleName("java.util.Map$Entry"))
	assert.Equal(t, "String", SimpleName("String"))
	assert.Equal(t, "org.example", PackageOf("org.example.User"))
	assert.Equal(t, "", PackageOf("User"))
}

func TestNewComment(t *testing.T) {
	t.Parallel()

	doc := NewComment("/** Adds things. */", NoSpan())
	assert.True(t, doc.IsJavadoc)
	assert.Equal(t, " Adds things. ", doc.Content)
	assert.Equal(t, Unknown, doc.StartLine)

	line := NewComment("// trailing", Span{StartLine: 3, StartColumn: 5, EndLine: 3, EndColumn: 15})
	assert.False(t, line.IsJavadoc)
	assert.Equal(t, " trailing", line.Content)

	block := NewComment("/* block */", NoSpan())
	assert.False(t, block.IsJavadoc)
	assert.Equal(t, " block ", block.Content)
}

func TestCallSiteSetAccess(t *testing.T) {
	t.Parallel()

	var cs CallSite
	cs.SetAccess("private")
	assert.True(t, cs.IsPrivate)
	assert.False(t, cs.IsUnspecified)

	cs.SetAccess("")
	assert.False(t, cs.IsPrivate)
	assert.True(t, cs.IsUnspecified)
}

func TestCallSiteJSONNulls(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(CallSite{MethodName: "log"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"crud_operation", "crud_query", "comment"} {
		v, ok := decoded[key]
		assert.True(t, ok, "key %s should be present", key)
		assert.Nil(t, v)
	}
	assert.Contains(t, decoded, "start_line")
}

func TestSymbolTableCallablesOrdered(t *testing.T) {
	t.Parallel()

	typ := NewType()
	typ.CallableDeclarations["b()"] = NewCallable()
	typ.CallableDeclarations["a()"] = NewCallable()
	st := SymbolTable{"User.java": {TypeDeclarations: map[string]*Type{"org.example.User": typ}}}

	refs := st.Callables()
	require.Len(t, refs, 2)
	assert.Equal(t, "a()", refs[0].Signature)
	assert.Equal(t, "org.example.User", refs[1].TypeName)
	assert.Equal(t, 2, st.CountCallables())
}
