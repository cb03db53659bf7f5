package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Errors the caller can act on are returned as a successful tool result
// so that the details are visible to the client rather than swallowed.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for invalid parameters or unknown partitions. System failures
// should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewAppErrorResult converts a resolver error into a tool error whose code
// is the error kind, e.g. "UnknownPartition".
func NewAppErrorResult(err error) *mcp.CallToolResult {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return NewErrorResultWithDetails(string(appErr.Kind), err.Error(), appErr)
	}
	return NewErrorResult("invalid_request", err.Error())
}
