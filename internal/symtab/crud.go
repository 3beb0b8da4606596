package symtab

// CRUDOperationType is the kind of persistence operation performed by a call.
type CRUDOperationType string

const (
	CRUDCreate CRUDOperationType = "CREATE"
	CRUDRead   CRUDOperationType = "READ"
	CRUDUpdate CRUDOperationType = "UPDATE"
	CRUDDelete CRUDOperationType = "DELETE"
)

// CRUDQueryType is the kind of query issued by a call.
type CRUDQueryType string

const (
	QueryRead  CRUDQueryType = "READ"
	QueryWrite CRUDQueryType = "WRITE"
	QueryNamed CRUDQueryType = "NAMED"
)

// CRUDOperation tags a call site that creates, reads, updates or deletes persisted data.
// The table, column, condition and join fields are reserved and always serialize as null.
type CRUDOperation struct {
	LineNumber      int               `json:"line_number"`
	OperationType   CRUDOperationType `json:"operation_type"`
	TargetTable     *string           `json:"target_table"`
	InvolvedColumns []string          `json:"involved_columns"`
	Condition       *string           `json:"condition"`
	JoinedTables    []string          `json:"joined_tables"`
}

// CRUDQuery tags a call site that issues a query.
type CRUDQuery struct {
	LineNumber     int           `json:"line_number"`
	QueryArguments []string      `json:"query_arguments"`
	QueryType      CRUDQueryType `json:"query_type"`
}
