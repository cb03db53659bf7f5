package models

import (
	"time"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
)

// CandidateQuery is one immutable, versioned attempt at a structured query.
// Iteration 0 is the initial generation; iteration k > 0 is the k-th repair.
type CandidateQuery struct {
	Iteration int            `json:"iteration"`
	Dialect   Dialect        `json:"dialect"`
	Text      string         `json:"text"`
	Tier      ComplexityTier `json:"tier"`
	CreatedAt time.Time      `json:"created_at"`

	// Sentinel marks a candidate that carries no query because generation
	// failed. Executing it fails with SentinelKind without touching a store.
	Sentinel       bool                `json:"sentinel,omitempty"`
	SentinelKind   apperrors.ErrorKind `json:"sentinel_kind,omitempty"`
	SentinelDetail string              `json:"sentinel_detail,omitempty"`
}

// SentinelCandidate builds the failing placeholder used when generation or
// repair produced no query.
func SentinelCandidate(iteration int, dialect Dialect, tier ComplexityTier, kind apperrors.ErrorKind, detail string) CandidateQuery {
	return CandidateQuery{
		Iteration:      iteration,
		Dialect:        dialect,
		Tier:           tier,
		CreatedAt:      time.Now().UTC(),
		Sentinel:       true,
		SentinelKind:   kind,
		SentinelDetail: detail,
	}
}

// ExecutionResult is the outcome of running exactly one CandidateQuery.
type ExecutionResult struct {
	Succeeded   bool                `json:"succeeded"`
	Columns     []string            `json:"columns,omitempty"`
	Rows        []map[string]any    `json:"rows,omitempty"`
	RowCount    int                 `json:"row_count"`
	Truncated   bool                `json:"truncated,omitempty"`
	ErrorClass  apperrors.ErrorKind `json:"error_class,omitempty"`
	ErrorDetail string              `json:"error_detail,omitempty"`
	Duration    time.Duration       `json:"duration"`
}

// FailedResult builds a failed ExecutionResult.
func FailedResult(kind apperrors.ErrorKind, detail string) ExecutionResult {
	return ExecutionResult{ErrorClass: kind, ErrorDetail: detail}
}

// Err returns the classified failure, or nil on success.
func (r ExecutionResult) Err() *apperrors.Error {
	if r.Succeeded {
		return nil
	}
	return apperrors.New(r.ErrorClass, r.ErrorDetail)
}
