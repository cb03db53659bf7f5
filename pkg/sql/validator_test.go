package sql

import (
	"errors"
	"testing"
)

func TestValidateReadOnly_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select without semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "simple select with trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "select with leading and trailing whitespace",
			input:    "  SELECT Name FROM Macros  ",
			expected: "SELECT Name FROM Macros",
		},
		{
			name:     "semicolon inside single quoted string",
			input:    "SELECT * FROM Macros WHERE Name = 'a;b'",
			expected: "SELECT * FROM Macros WHERE Name = 'a;b'",
		},
		{
			name:     "semicolon inside double quoted identifier",
			input:    `SELECT * FROM "table;name"`,
			expected: `SELECT * FROM "table;name"`,
		},
		{
			name:     "semicolon inside comment",
			input:    "SELECT Name -- width; height\nFROM Macros",
			expected: "SELECT Name -- width; height\nFROM Macros",
		},
		{
			name:     "select CTE",
			input:    "WITH wide AS (SELECT Name FROM Macros WHERE Width > 2) SELECT * FROM wide;",
			expected: "WITH wide AS (SELECT Name FROM Macros WHERE Width > 2) SELECT * FROM wide",
		},
		{
			name:     "parenthesized union",
			input:    "(SELECT Name FROM Macros) UNION (SELECT MacroName FROM Pins)",
			expected: "(SELECT Name FROM Macros) UNION (SELECT MacroName FROM Pins)",
		},
		{
			name:     "leading comment",
			input:    "-- widest cells\nSELECT Name FROM Macros ORDER BY Width DESC",
			expected: "-- widest cells\nSELECT Name FROM Macros ORDER BY Width DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateReadOnly(tt.input)
			if result.Error != nil {
				t.Fatalf("unexpected error: %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result.NormalizedSQL)
			}
			if result.Type != StatementSelect {
				t.Errorf("expected SELECT, got %s", result.Type)
			}
		})
	}
}

func TestValidateReadOnly_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantType StatementType
	}{
		{"empty", "   ", ErrEmptyStatement, StatementUnknown},
		{"only semicolon", ";", ErrEmptyStatement, StatementUnknown},
		{"two selects", "SELECT 1; SELECT 2", ErrMultipleStatements, StatementUnknown},
		{"stacked delete", "SELECT 1; DELETE FROM Macros", ErrMultipleStatements, StatementUnknown},
		{"delete", "DELETE FROM Macros", ErrNotReadOnly, StatementModify},
		{"update", "UPDATE Macros SET Width = 0", ErrNotReadOnly, StatementModify},
		{"insert", "INSERT INTO Macros (Name) VALUES ('x')", ErrNotReadOnly, StatementModify},
		{"drop", "DROP TABLE Macros", ErrNotReadOnly, StatementDDL},
		{"attach", "ATTACH DATABASE 'x.db' AS x", ErrNotReadOnly, StatementDDL},
		{"pragma", "PRAGMA writable_schema = 1", ErrNotReadOnly, StatementDDL},
		{"modifying CTE", "WITH d AS (DELETE FROM Macros RETURNING *) SELECT * FROM d", ErrNotReadOnly, StatementModify},
		{"select into", "SELECT * INTO MacrosBackup FROM Macros", ErrNotReadOnly, StatementModify},
		{"not sql", "show me the macros", ErrNotReadOnly, StatementUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateReadOnly(tt.input)
			if !errors.Is(result.Error, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, result.Error)
			}
			if result.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, result.Type)
			}
		})
	}
}

func TestValidateReadOnly_TrailingComment(t *testing.T) {
	result := ValidateReadOnly("SELECT Name FROM Macros; -- done")
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
}
