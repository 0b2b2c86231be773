// Package models defines the shared domain types of the sqlsage engine:
// tool invocation results, orchestration state, catalog snapshots, generated
// code artifacts, and the final answer shape returned to callers.
package models

import (
	"time"
)

// ── Tool Invocation ─────────────────────────────────────────

// RunResult is the outcome of a single tool invocation. Handlers never leak
// raw failures across the agent boundary; every fault is converted into a
// RunResult with Success=false and a descriptive Error.
type RunResult struct {
	Success   bool          `json:"success"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
	Agent     string        `json:"agent"`
	Timestamp time.Time     `json:"timestamp"`
}

// ── Catalog ─────────────────────────────────────────────────

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableInfo describes one table of the connected store.
type TableInfo struct {
	Name     string       `json:"name"`
	Columns  []ColumnInfo `json:"columns"`
	RowCount int64        `json:"row_count"`
}

// CatalogSnapshot is a point-in-time view of the store schema, fetched once
// per query (served from a TTL cache between queries).
type CatalogSnapshot struct {
	Tables    []TableInfo `json:"tables"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// ── Generated Code ──────────────────────────────────────────

// CodeKind selects which branch of the execution gate runs an artifact.
type CodeKind string

const (
	// KindStatement is a declarative query statement run against the store.
	KindStatement CodeKind = "statement"
	// KindScript is a transformation script evaluated in a restricted scope.
	KindScript CodeKind = "script"
)

// CodeArtifact is one piece of generated code plus its declared kind.
type CodeArtifact struct {
	Kind CodeKind `json:"kind"`
	Code string   `json:"code"`
}

// ExecutionResult is the outcome of running one artifact through the gate.
// Exactly one is produced per iteration that reaches the execution stage.
type ExecutionResult struct {
	Success bool             `json:"success"`
	Rows    []map[string]any `json:"rows,omitempty"`
	Error   string           `json:"error,omitempty"`
	Elapsed time.Duration    `json:"elapsed"`
}

// ── Stage Outputs ───────────────────────────────────────────

// Classification is the Understanding stage's verdict on a query.
type Classification struct {
	RequiresData bool   `json:"requires_data"`
	NeedsChart   bool   `json:"needs_chart"`
	Reply        string `json:"reply,omitempty"`
}

// EvaluationOutcome is the Evaluate stage's independent judgment of whether
// the produced result actually answers the original question.
type EvaluationOutcome struct {
	Satisfied  bool   `json:"satisfied"`
	Reason     string `json:"reason"`
	Refinement string `json:"refinement,omitempty"`
}

// ChartSpec describes a visualization; consumed by a rendering collaborator.
type ChartSpec struct {
	Kind   string `json:"kind"` // bar | line | scatter | pie | table
	Title  string `json:"title"`
	XField string `json:"x_field"`
	YField string `json:"y_field"`
}

// ── Orchestration ───────────────────────────────────────────

// IterationInfo records one pass through the refinement loop. Hint is empty
// for the first iteration; Outcome is nil until evaluation runs (execution
// failures skip Reason/Evaluate entirely).
type IterationInfo struct {
	Index   int                `json:"index"`
	Hint    string             `json:"hint,omitempty"`
	Outcome *EvaluationOutcome `json:"outcome,omitempty"`
}

// FinalResult is assembled exactly once, at loop exit (success, budget
// exhaustion, or terminal failure).
type FinalResult struct {
	Data          []map[string]any `json:"data,omitempty"`
	Explanation   string           `json:"explanation,omitempty"`
	Insights      string           `json:"insights,omitempty"`
	Reply         string           `json:"reply,omitempty"`
	Elapsed       time.Duration    `json:"elapsed"`
	ChartRequired bool             `json:"chart_required"`
	Chart         *ChartSpec       `json:"chart,omitempty"`
	Iterations    int              `json:"iterations"`
	Error         string           `json:"error,omitempty"`
}

// OrchestrationState is created per incoming query and discarded once
// FinalResult is set. Responses is append-only and never reordered.
type OrchestrationState struct {
	ID         string           `json:"id"`
	Query      string           `json:"query"`
	Catalog    *CatalogSnapshot `json:"catalog,omitempty"`
	Responses  []RunResult      `json:"responses"`
	Iterations int              `json:"iterations"`
	Log        []IterationInfo  `json:"iteration_log"`
	Final      *FinalResult     `json:"final_result,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
}
