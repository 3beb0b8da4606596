package crud

import "strings"

// JPA recognizes EntityManager operations and Query execution.
type JPA struct{}

func (JPA) Name() string { return "jpa" }

func (JPA) IsCreateOperation(recv, method string) bool {
	return receiverIs(recv, "EntityManager") && method == "persist"
}

func (JPA) IsReadOperation(recv, method string) bool {
	return (receiverIs(recv, "EntityManager") && oneOf(method, "find", "getReference", "refresh")) ||
		(receiverIs(recv, "Query", "TypedQuery", "StoredProcedureQuery") &&
			oneOf(method, "getResultList", "getSingleResult", "getResultStream"))
}

func (JPA) IsUpdateOperation(recv, method string) bool {
	return (receiverIs(recv, "EntityManager") && method == "merge") ||
		(receiverIs(recv, "Query", "TypedQuery") && method == "executeUpdate")
}

func (JPA) IsDeleteOperation(recv, method string) bool {
	return receiverIs(recv, "EntityManager") && method == "remove"
}

func (JPA) IsReadQuery(recv, method string, args []string) bool {
	return receiverIs(recv, "EntityManager") && oneOf(method, "createQuery", "createNativeQuery") && isReadStatement(args)
}

func (JPA) IsWriteQuery(recv, method string, args []string) bool {
	return receiverIs(recv, "EntityManager") && oneOf(method, "createQuery", "createNativeQuery") && isWriteStatement(args)
}

func (JPA) IsNamedQuery(recv, method string, _ []string) bool {
	return receiverIs(recv, "EntityManager") && method == "createNamedQuery"
}

// Hibernate recognizes native Session operations and queries.
type Hibernate struct{}

func (Hibernate) Name() string { return "hibernate" }

func (Hibernate) IsCreateOperation(recv, method string) bool {
	return receiverIs(recv, "Session", "StatelessSession") && oneOf(method, "save", "persist", "insert")
}

func (Hibernate) IsReadOperation(recv, method string) bool {
	return receiverIs(recv, "Session", "StatelessSession") && oneOf(method, "get", "load", "find", "byId")
}

func (Hibernate) IsUpdateOperation(recv, method string) bool {
	return receiverIs(recv, "Session", "StatelessSession") && oneOf(method, "update", "merge", "saveOrUpdate", "upsert")
}

func (Hibernate) IsDeleteOperation(recv, method string) bool {
	return receiverIs(recv, "Session", "StatelessSession") && oneOf(method, "delete", "remove")
}

func (Hibernate) IsReadQuery(recv, method string, args []string) bool {
	return receiverIs(recv, "Session", "StatelessSession") &&
		oneOf(method, "createQuery", "createSQLQuery", "createNativeQuery", "createSelectionQuery") &&
		(method == "createSelectionQuery" || isReadStatement(args))
}

func (Hibernate) IsWriteQuery(recv, method string, args []string) bool {
	return receiverIs(recv, "Session", "StatelessSession") &&
		oneOf(method, "createQuery", "createSQLQuery", "createNativeQuery", "createMutationQuery") &&
		(method == "createMutationQuery" || isWriteStatement(args))
}

func (Hibernate) IsNamedQuery(recv, method string, _ []string) bool {
	return receiverIs(recv, "Session", "StatelessSession") &&
		oneOf(method, "getNamedQuery", "createNamedQuery", "getNamedNativeQuery")
}

// JDBC recognizes statement execution against java.sql.
type JDBC struct{}

func (JDBC) Name() string { return "jdbc" }

var jdbcStatements = []string{"Statement", "PreparedStatement", "CallableStatement"}

func (JDBC) IsCreateOperation(string, string) bool { return false }

func (JDBC) IsReadOperation(recv, method string) bool {
	return receiverIs(recv, jdbcStatements...) && method == "executeQuery"
}

func (JDBC) IsUpdateOperation(recv, method string) bool {
	return receiverIs(recv, jdbcStatements...) && oneOf(method, "executeUpdate", "executeLargeUpdate", "executeBatch")
}

func (JDBC) IsDeleteOperation(string, string) bool { return false }

func (JDBC) IsReadQuery(recv, method string, args []string) bool {
	return jdbcQuery(recv, method) && isReadStatement(args)
}

func (JDBC) IsWriteQuery(recv, method string, args []string) bool {
	return jdbcQuery(recv, method) && isWriteStatement(args)
}

func (JDBC) IsNamedQuery(string, string, []string) bool { return false }

func jdbcQuery(recv, method string) bool {
	return (receiverIs(recv, "Connection") && oneOf(method, "prepareStatement", "prepareCall")) ||
		(receiverIs(recv, jdbcStatements...) && oneOf(method, "executeQuery", "executeUpdate", "execute", "addBatch"))
}

// SpringData recognizes repository methods and JdbcTemplate calls.
type SpringData struct{}

func (SpringData) Name() string { return "spring-data" }

func isRepository(recv string) bool {
	simple := strings.TrimSuffix(recv, ">")
	if i := strings.Index(simple, "<"); i >= 0 {
		simple = simple[:i]
	}
	return strings.HasSuffix(simple, "Repository") || strings.HasSuffix(simple, "Dao")
}

func (SpringData) IsCreateOperation(recv, method string) bool {
	return isRepository(recv) && oneOf(method, "save", "saveAll", "saveAndFlush", "insert")
}

func (SpringData) IsReadOperation(recv, method string) bool {
	return isRepository(recv) && hasAnyPrefix(method, "find", "get", "read", "query", "count", "exists", "stream", "search")
}

func (SpringData) IsUpdateOperation(recv, method string) bool {
	return isRepository(recv) && hasAnyPrefix(method, "update")
}

func (SpringData) IsDeleteOperation(recv, method string) bool {
	return isRepository(recv) && hasAnyPrefix(method, "delete", "remove")
}

func (SpringData) IsReadQuery(recv, method string, _ []string) bool {
	return receiverIs(recv, "JdbcTemplate", "NamedParameterJdbcTemplate") &&
		hasAnyPrefix(method, "query")
}

func (SpringData) IsWriteQuery(recv, method string, _ []string) bool {
	return receiverIs(recv, "JdbcTemplate", "NamedParameterJdbcTemplate") &&
		oneOf(method, "update", "batchUpdate", "execute")
}

func (SpringData) IsNamedQuery(string, string, []string) bool { return false }
