package resolve

import "strings"

var primitives = map[string]bool{
	"byte":    true,
	"short":   true,
	"int":     true,
	"long":    true,
	"char":    true,
	"float":   true,
	"double":  true,
	"boolean": true,
	"void":    true,
}

// javaLang holds the implicitly imported java.lang types.
var javaLang = map[string]string{}

// jdkPackages lists well-known JDK types by package so on-demand imports of
// these packages resolve without a classpath.
var jdkPackages = map[string][]string{
	"java.lang": {
		"String", "Object", "System", "Integer", "Long", "Double", "Float", "Boolean", "Byte",
		"Character", "Short", "Void", "Number", "Math", "StrictMath", "Class", "ClassLoader",
		"Thread", "ThreadGroup", "ThreadLocal", "StringBuilder", "StringBuffer", "Enum", "Record",
		"Throwable", "Exception", "RuntimeException", "Error", "StackTraceElement", "Iterable",
		"AutoCloseable", "Runnable", "Comparable", "CharSequence", "Cloneable", "Readable",
		"Override", "Deprecated", "SuppressWarnings", "SafeVarargs", "FunctionalInterface",
		"NullPointerException", "IllegalArgumentException", "IllegalStateException",
		"IndexOutOfBoundsException", "ArrayIndexOutOfBoundsException", "ClassCastException",
		"UnsupportedOperationException", "ArithmeticException", "NumberFormatException",
		"InterruptedException", "CloneNotSupportedException", "ReflectiveOperationException",
		"ClassNotFoundException", "SecurityException", "Process", "ProcessBuilder", "Runtime",
	},
	"java.util": {
		"List", "ArrayList", "LinkedList", "Map", "HashMap", "LinkedHashMap", "TreeMap", "Set",
		"HashSet", "LinkedHashSet", "TreeSet", "Collection", "Collections", "Arrays", "Objects",
		"Optional", "Iterator", "Queue", "Deque", "ArrayDeque", "Stack", "Vector", "Hashtable",
		"Properties", "Date", "Calendar", "UUID", "Random", "Scanner", "Locale", "Comparator",
		"Enumeration", "StringJoiner", "NoSuchElementException", "ConcurrentModificationException",
	},
	"java.util.function": {
		"Function", "BiFunction", "Supplier", "Consumer", "BiConsumer", "Predicate", "BiPredicate",
		"UnaryOperator", "BinaryOperator",
	},
	"java.util.stream": {"Stream", "Collectors", "IntStream", "LongStream"},
	"java.util.concurrent": {
		"ConcurrentHashMap", "ExecutorService", "Executors", "Future", "CompletableFuture",
		"TimeUnit", "Callable", "CountDownLatch",
	},
	"java.io": {
		"IOException", "File", "InputStream", "OutputStream", "PrintStream", "PrintWriter",
		"Reader", "Writer", "BufferedReader", "InputStreamReader", "Serializable",
		"FileNotFoundException", "UncheckedIOException", "Closeable",
	},
	"java.sql": {
		"Connection", "Statement", "PreparedStatement", "CallableStatement", "ResultSet",
		"SQLException", "DriverManager", "Timestamp",
	},
	"java.math":     {"BigDecimal", "BigInteger"},
	"java.time":     {"Instant", "Duration", "LocalDate", "LocalDateTime", "ZonedDateTime"},
	"java.nio.file": {"Path", "Paths", "Files"},
}

// jdkFields holds the static fields of JDK types commonly used as receivers.
var jdkFields = map[string]map[string]string{
	"java.lang.System":  {"out": "java.io.PrintStream", "err": "java.io.PrintStream", "in": "java.io.InputStream"},
	"java.lang.Integer": {"MAX_VALUE": "int", "MIN_VALUE": "int"},
	"java.lang.Long":    {"MAX_VALUE": "long", "MIN_VALUE": "long"},
	"java.lang.Boolean": {"TRUE": "java.lang.Boolean", "FALSE": "java.lang.Boolean"},
}

// jdkMethod describes a JDK method well enough to type a call and build its signature.
type jdkMethod struct {
	params []string
	ret    string
	static bool
}

// jdkMethods holds a small table of JDK methods keyed by declaring type and name.
var jdkMethods = map[string]map[string][]jdkMethod{
	"java.lang.Object": {
		"toString": {{ret: "java.lang.String"}},
		"equals":   {{params: []string{"java.lang.Object"}, ret: "boolean"}},
		"hashCode": {{ret: "int"}},
		"getClass": {{ret: "java.lang.Class<?>"}},
	},
	"java.lang.String": {
		"length":           {{ret: "int"}},
		"isEmpty":          {{ret: "boolean"}},
		"isBlank":          {{ret: "boolean"}},
		"trim":             {{ret: "java.lang.String"}},
		"strip":            {{ret: "java.lang.String"}},
		"toUpperCase":      {{ret: "java.lang.String"}},
		"toLowerCase":      {{ret: "java.lang.String"}},
		"charAt":           {{params: []string{"int"}, ret: "char"}},
		"substring":        {{params: []string{"int"}, ret: "java.lang.String"}, {params: []string{"int", "int"}, ret: "java.lang.String"}},
		"indexOf":          {{params: []string{"java.lang.String"}, ret: "int"}},
		"contains":         {{params: []string{"java.lang.CharSequence"}, ret: "boolean"}},
		"startsWith":       {{params: []string{"java.lang.String"}, ret: "boolean"}},
		"endsWith":         {{params: []string{"java.lang.String"}, ret: "boolean"}},
		"equalsIgnoreCase": {{params: []string{"java.lang.String"}, ret: "boolean"}},
		"split":            {{params: []string{"java.lang.String"}, ret: "java.lang.String[]"}},
		"replace":          {{params: []string{"java.lang.CharSequence", "java.lang.CharSequence"}, ret: "java.lang.String"}},
		"format":           {{params: []string{"java.lang.String", "java.lang.Object[]"}, ret: "java.lang.String", static: true}},
		"valueOf":          {{params: []string{"java.lang.Object"}, ret: "java.lang.String", static: true}},
	},
	"java.lang.StringBuilder": {
		"append":   {{params: []string{"java.lang.Object"}, ret: "java.lang.StringBuilder"}},
		"toString": {{ret: "java.lang.String"}},
		"length":   {{ret: "int"}},
	},
	"java.io.PrintStream": {
		"println": {{ret: "void"}, {params: []string{"java.lang.String"}, ret: "void"}},
		"print":   {{params: []string{"java.lang.String"}, ret: "void"}},
		"printf":  {{params: []string{"java.lang.String", "java.lang.Object[]"}, ret: "java.io.PrintStream"}},
	},
	"java.lang.Throwable": {
		"getMessage":      {{ret: "java.lang.String"}},
		"printStackTrace": {{ret: "void"}},
		"getCause":        {{ret: "java.lang.Throwable"}},
	},
	"java.util.Collection": {
		"size":     {{ret: "int"}},
		"isEmpty":  {{ret: "boolean"}},
		"contains": {{params: []string{"java.lang.Object"}, ret: "boolean"}},
		"stream":   {{ret: "java.util.stream.Stream"}},
		"clear":    {{ret: "void"}},
	},
	"java.util.Map": {
		"size":        {{ret: "int"}},
		"isEmpty":     {{ret: "boolean"}},
		"containsKey": {{params: []string{"java.lang.Object"}, ret: "boolean"}},
		"clear":       {{ret: "void"}},
	},
	"java.util.Objects": {
		"requireNonNull": {{params: []string{"java.lang.Object"}, ret: "java.lang.Object", static: true}, {params: []string{"java.lang.Object", "java.util.function.Supplier<java.lang.String>"}, ret: "java.lang.Object", static: true}},
		"isNull":         {{params: []string{"java.lang.Object"}, ret: "boolean", static: true}},
		"nonNull":        {{params: []string{"java.lang.Object"}, ret: "boolean", static: true}},
		"equals":         {{params: []string{"java.lang.Object", "java.lang.Object"}, ret: "boolean", static: true}},
	},
	"java.lang.Math": {
		"max": {{params: []string{"int", "int"}, ret: "int", static: true}},
		"min": {{params: []string{"int", "int"}, ret: "int", static: true}},
		"abs": {{params: []string{"int"}, ret: "int", static: true}},
	},
}

// jdkSupertypes links JDK types so member lookup falls through to their parents.
var jdkSupertypes = map[string][]string{
	"java.lang.String":           {"java.lang.Object", "java.lang.CharSequence"},
	"java.lang.StringBuilder":    {"java.lang.Object", "java.lang.CharSequence"},
	"java.io.PrintStream":        {"java.lang.Object"},
	"java.lang.Exception":        {"java.lang.Throwable"},
	"java.lang.RuntimeException": {"java.lang.Exception"},
	"java.lang.Error":            {"java.lang.Throwable"},
	"java.lang.Throwable":        {"java.lang.Object"},
	"java.util.List":             {"java.util.Collection"},
	"java.util.Set":              {"java.util.Collection"},
	"java.util.Queue":            {"java.util.Collection"},
	"java.util.ArrayList":        {"java.util.List"},
	"java.util.LinkedList":       {"java.util.List"},
	"java.util.HashSet":          {"java.util.Set"},
	"java.util.HashMap":          {"java.util.Map"},
	"java.util.TreeMap":          {"java.util.Map"},
	"java.util.Collection":       {"java.lang.Iterable"},
	"java.lang.Iterable":         {"java.lang.Object"},
	"java.util.Map":              {"java.lang.Object"},
}

// jdkTypes maps every known JDK type name to itself for membership checks.
var jdkTypes = map[string]bool{}

func init() {
	for pkg, names := range jdkPackages {
		for _, name := range names {
			fqn := pkg + "." + name
			jdkTypes[fqn] = true
			if pkg == "java.lang" {
				javaLang[name] = fqn
			}
		}
	}
}

// IsPrimitive reports whether name is a primitive type or void.
func IsPrimitive(name string) bool {
	return primitives[name]
}

// IsJDK reports whether fqn belongs to the JDK namespace.
func IsJDK(fqn string) bool {
	return strings.HasPrefix(fqn, "java.") || strings.HasPrefix(fqn, "javax.") ||
		strings.HasPrefix(fqn, "jdk.") || strings.HasPrefix(fqn, "sun.")
}
