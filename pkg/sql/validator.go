// Package sql provides lexical validation and analysis of generated SQL:
// single-statement and read-only gating, schema reference extraction and
// query shape classification.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrEmptyStatement indicates there is nothing to execute.
	ErrEmptyStatement = errors.New("empty SQL statement")
	// ErrNotReadOnly indicates the statement could modify the store.
	ErrNotReadOnly = errors.New("only read-only SELECT statements are permitted")
)

// StatementType is the leading verb of a statement.
type StatementType string

const (
	StatementSelect  StatementType = "SELECT"
	StatementModify  StatementType = "MODIFY" // INSERT, UPDATE, DELETE, MERGE, CALL, EXEC
	StatementDDL     StatementType = "DDL"    // CREATE, ALTER, DROP, TRUNCATE, ATTACH, PRAGMA
	StatementUnknown StatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE)\b`)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Type          StatementType
	Error         error
}

// ValidateReadOnly normalizes a statement and checks that it is a single
// read-only query.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Reject multiple statements (semicolons outside literals and comments
// followed by more tokens)
// 3. Reject anything that is not a SELECT (or a pure SELECT CTE)
func ValidateReadOnly(sqlQuery string) ValidationResult {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlQuery))
	if normalized == "" {
		return ValidationResult{Type: StatementUnknown, Error: ErrEmptyStatement}
	}

	toks := Tokenize(normalized)
	// a lone ";" before a trailing comment still ends the only statement
	for i, t := range toks {
		if t.Is(";") && i < len(toks)-1 {
			return ValidationResult{Type: StatementUnknown, Error: ErrMultipleStatements}
		}
	}

	stmtType := DetectStatementType(normalized)
	if stmtType != StatementSelect {
		return ValidationResult{NormalizedSQL: normalized, Type: stmtType, Error: ErrNotReadOnly}
	}

	// SELECT ... INTO creates a table on SQL Server and PostgreSQL
	for _, t := range toks {
		if t.Is("INTO") {
			return ValidationResult{NormalizedSQL: normalized, Type: StatementModify, Error: ErrNotReadOnly}
		}
	}

	return ValidationResult{NormalizedSQL: normalized, Type: StatementSelect}
}

// DetectStatementType determines the statement type from its first keyword.
func DetectStatementType(sqlQuery string) StatementType {
	toks := Tokenize(sqlQuery)
	// leading parens: (SELECT ...) UNION (SELECT ...)
	i := 0
	for i < len(toks) && toks[i].Is("(") {
		i++
	}
	if i >= len(toks) {
		return StatementUnknown
	}

	switch toks[i].Upper() {
	case "SELECT", "VALUES":
		return StatementSelect
	case "WITH":
		if modifyingCTEPattern.MatchString(sqlQuery) {
			return StatementModify
		}
		return StatementSelect
	case "INSERT", "UPDATE", "DELETE", "MERGE", "CALL", "EXEC", "EXECUTE", "REPLACE", "UPSERT":
		return StatementModify
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX", "GRANT", "REVOKE":
		return StatementDDL
	default:
		return StatementUnknown
	}
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
