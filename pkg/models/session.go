package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
)

// SessionState is a state of the resolution state machine.
type SessionState string

const (
	StateLinking     SessionState = "LINKING"
	StateClassifying SessionState = "CLASSIFYING"
	StateGenerating  SessionState = "GENERATING"
	StateExecuting   SessionState = "EXECUTING"
	StateRepairing   SessionState = "REPAIRING"
	StateResolved    SessionState = "RESOLVED"
	StateExhausted   SessionState = "EXHAUSTED"
	StateCancelled   SessionState = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s SessionState) IsTerminal() bool {
	return s == StateResolved || s == StateExhausted || s == StateCancelled
}

// Attempt pairs a candidate with its execution outcome.
type Attempt struct {
	Candidate CandidateQuery  `json:"candidate"`
	Result    ExecutionResult `json:"result"`
}

// RepairContext is the append-only history handed to the refiner. It is
// owned by exactly one session and discarded when the session ends.
type RepairContext struct {
	Question       Question          `json:"question"`
	Partition      PartitionKey      `json:"partition"`
	Descriptor     *SchemaDescriptor `json:"-"`
	LinkSet        SchemaLinkSet     `json:"link_set"`
	Tier           ComplexityTier    `json:"tier"`
	Attempts       []Attempt         `json:"attempts"`
	IterationCount int               `json:"iteration_count"`
}

// Append records an attempt. History is never rewritten.
func (r *RepairContext) Append(a Attempt) {
	r.Attempts = append(r.Attempts, a)
}

// Latest returns the most recent attempt.
func (r *RepairContext) Latest() (Attempt, bool) {
	if len(r.Attempts) == 0 {
		return Attempt{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}

// ProviderExchange is one recorded generation call made by a session.
type ProviderExchange struct {
	Component string        `json:"component"`
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Resolution is the caller-facing terminal result of one session.
type Resolution struct {
	SessionID      uuid.UUID          `json:"session_id"`
	Question       Question           `json:"question"`
	Partition      PartitionKey       `json:"partition"`
	Status         SessionState       `json:"status"`
	FinalQuery     *CandidateQuery    `json:"final_query,omitempty"`
	Columns        []string           `json:"columns,omitempty"`
	Rows           []map[string]any   `json:"rows,omitempty"`
	IterationCount int                `json:"iteration_count"`
	LastError      *apperrors.Error   `json:"last_error,omitempty"`
	LinkSet        SchemaLinkSet      `json:"link_set"`
	Tier           ComplexityTier     `json:"tier"`
	TierDefaulted  bool               `json:"tier_defaulted,omitempty"`
	ObservedTier   ComplexityTier     `json:"observed_tier,omitempty"`
	History        []Attempt          `json:"history"`
	Transitions    []SessionState     `json:"transitions"`
	Exchanges      []ProviderExchange `json:"exchanges,omitempty"`
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
}

// Executions returns the number of execution attempts made.
func (r *Resolution) Executions() int {
	return len(r.History)
}
