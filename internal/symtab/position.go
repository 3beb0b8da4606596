package symtab

// Unknown is the sentinel used for every coordinate of a position the parser could not report.
const Unknown = -1

// Span is a source range. Lines are 1-based, columns are 1-based and the end column is inclusive.
type Span struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// NoSpan returns a span with every coordinate set to Unknown.
func NoSpan() Span {
	return Span{StartLine: Unknown, StartColumn: Unknown, EndLine: Unknown, EndColumn: Unknown}
}

// Comment is a line, block or documentation comment.
type Comment struct {
	Content   string `json:"content"`
	IsJavadoc bool   `json:"is_javadoc"`
	Span
}

// NewComment builds a comment from its raw text, stripping the comment delimiters.
func NewComment(raw string, span Span) Comment {
	return Comment{
		Content:   CommentContent(raw),
		IsJavadoc: IsJavadoc(raw),
		Span:      span,
	}
}

// IsJavadoc reports whether raw comment text is a documentation comment.
func IsJavadoc(raw string) bool {
	return len(raw) >= 5 && raw[:3] == "/**" && raw != "/**/"
}

// CommentContent returns the body of a comment without its delimiters.
func CommentContent(raw string) string {
	switch {
	case len(raw) >= 2 && raw[:2] == "//":
		return raw[2:]
	case IsJavadoc(raw):
		return raw[3 : len(raw)-2]
	case len(raw) >= 4 && raw[:2] == "/*":
		return raw[2 : len(raw)-2]
	}
	return raw
}
