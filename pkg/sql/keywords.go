package sql

// keywords are bare words that never name a schema element. The list covers
// the SQLite, PostgreSQL and T-SQL surface a generated read query uses,
// including type names and date parts that appear after CAST ... AS or in
// EXTRACT.
var keywords = toSet(
	"ABS", "ALL", "AND", "ANY", "AS", "ASC", "AVG", "BETWEEN", "BIGINT", "BLOB", "BOOLEAN", "BOTH", "BY",
	"CASE", "CAST", "CEIL", "CEILING", "CHAR", "COALESCE", "COLLATE", "COUNT", "CROSS", "CURRENT",
	"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "DATE", "DAY", "DECIMAL", "DEFAULT", "DENSE_RANK",
	"DESC", "DISTINCT", "DOUBLE", "ELSE", "END", "ESCAPE", "EXCEPT", "EXISTS", "EXTRACT", "FALSE",
	"FETCH", "FILTER", "FIRST", "FLOAT", "FLOOR", "FOLLOWING", "FOR", "FROM", "FULL", "GLOB", "GROUP",
	"GROUPS", "HAVING", "HOUR", "IFNULL", "ILIKE", "IN", "INNER", "INT", "INTEGER", "INTERSECT",
	"INTERVAL", "IS", "ISNULL", "JOIN", "LAG", "LAST", "LEAD", "LEADING", "LEFT", "LENGTH", "LIKE",
	"LIMIT", "LOWER", "MATERIALIZED", "MAX", "MIN", "MINUTE", "MONTH", "NATURAL", "NEXT", "NOT",
	"NOTNULL", "NULL", "NULLIF", "NULLS", "NUMERIC", "OF", "OFFSET", "ON", "ONLY", "OR", "ORDER",
	"OUTER", "OVER", "PARTITION", "PERCENT", "PRECEDING", "RANGE", "RANK", "REAL", "RECURSIVE",
	"REGEXP", "RIGHT", "ROUND", "ROW", "ROWS", "ROW_NUMBER", "SECOND", "SELECT", "SIMILAR", "SMALLINT",
	"SOME", "SQRT", "STDDEV", "SUBSTR", "SUBSTRING", "SUM", "TEXT", "THEN", "TIES", "TIME", "TIMESTAMP",
	"TO", "TOP", "TRAILING", "TRIM", "TRUE", "UNBOUNDED", "UNION", "UNIQUE", "UPPER", "USING", "VALUES",
	"VARCHAR", "VARIANCE", "WHEN", "WHERE", "WINDOW", "WITH", "WITHIN", "YEAR", "ZONE",
)

// aggregates mark a query as needing aggregation.
var aggregates = toSet("COUNT", "SUM", "AVG", "MIN", "MAX", "STDDEV", "VARIANCE", "GROUP_CONCAT", "STRING_AGG", "ARRAY_AGG")

// clauseBoundaries end a FROM list.
var clauseBoundaries = toSet(
	"WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "OFFSET", "UNION", "INTERSECT", "EXCEPT",
	"ON", "USING", "WINDOW", "FETCH", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "CROSS", "NATURAL", "OUTER",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsKeyword reports whether a bare word is reserved for SQL syntax.
func IsKeyword(word string) bool {
	return keywords[upper(word)]
}
