package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sqlsage/sqlsage/internal/analyst"
	"github.com/sqlsage/sqlsage/internal/catalog"
	"github.com/sqlsage/sqlsage/internal/gate"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/orchestrator"
	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// newEngine wires an orchestrator over a scripted completer and the given
// adapter (nil means no store configured).
func newEngine(t *testing.T, adapter store.Adapter, replies ...string) *orchestrator.Orchestrator {
	t.Helper()
	suite := analyst.New(llm.NewStatic(replies...), analyst.Config{RowLimit: 1000})
	return orchestrator.New(suite, gate.New(adapter), adapter, catalog.NewCache(time.Minute), orchestrator.Config{
		MaxIterations:            3,
		OptimisticClassification: true,
		OptimisticEvaluation:     true,
	})
}

func newCountAdapter(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory("orch-test")
	m.AddTable("t", []models.ColumnInfo{{Name: "id", Type: "integer"}}, nil)
	m.Stub("SELECT count(*) FROM t LIMIT 1000", []map[string]any{{"count": int64(7)}}, nil)
	return m
}

func TestConversationalShortCircuit(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": false, "needs_chart": false, "reply": "Hi! Ask me about your data."}`,
	)

	state, err := o.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final == nil || state.Final.Reply == "" {
		t.Fatalf("Ask() final = %+v, want chat reply", state.Final)
	}
	if state.Iterations != 0 {
		t.Errorf("iterations = %d, want 0", state.Iterations)
	}
	if state.Catalog != nil {
		t.Error("catalog fetched for conversational query")
	}
	if len(m.Statements) != 0 {
		t.Errorf("adapter received %d statements, want 0", len(m.Statements))
	}
}

func TestCountScenarioSingleIteration(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows in total. That is the full row count you asked about.`,
		`{"satisfied": true, "reason": "directly answers the count question"}`,
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	final := state.Final
	if final == nil || final.Error != "" {
		t.Fatalf("Ask() final = %+v, want success", final)
	}
	if final.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", final.Iterations)
	}
	if len(final.Data) != 1 || final.Data[0]["count"] != int64(7) {
		t.Errorf("data = %v, want single count row of 7", final.Data)
	}
	if !strings.Contains(final.Explanation, "7") {
		t.Errorf("explanation = %q, want mention of 7", final.Explanation)
	}
	if len(state.Log) != 1 || state.Log[0].Outcome == nil || !state.Log[0].Outcome.Satisfied {
		t.Errorf("iteration log = %+v, want one satisfied entry", state.Log)
	}
	// The generated statement reached the adapter exactly once, with the
	// row ceiling appended.
	if len(m.Statements) != 1 || !strings.Contains(m.Statements[0], "LIMIT 1000") {
		t.Errorf("adapter statements = %v, want one limited statement", m.Statements)
	}
}

func TestEvaluationFailureDefaultsToSatisfied(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`sure, looks good to me`, // no JSON object anywhere in the reply
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final == nil || state.Final.Error != "" {
		t.Fatalf("Ask() final = %+v, want success despite evaluation failure", state.Final)
	}
	if state.Final.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", state.Final.Iterations)
	}
	if len(state.Log) != 1 || state.Log[0].Outcome == nil {
		t.Fatalf("iteration log = %+v, want one entry with an outcome", state.Log)
	}
	if !state.Log[0].Outcome.Satisfied {
		t.Errorf("outcome = %+v, want defaulted satisfied", state.Log[0].Outcome)
	}
	if !strings.Contains(state.Log[0].Outcome.Reason, "evaluation unavailable") {
		t.Errorf("outcome reason = %q, want evaluation-unavailable marker", state.Log[0].Outcome.Reason)
	}
}

func TestReasoningFailureFallsBackToGenericExplanation(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		``, // empty reasoning reply
		`{"satisfied": true, "reason": "data answers the question"}`,
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	final := state.Final
	if final == nil || final.Error != "" {
		t.Fatalf("Ask() final = %+v, want success despite reasoning failure", final)
	}
	if final.Explanation == "" {
		t.Error("explanation empty, want generic fallback text")
	}
	if !strings.Contains(final.Explanation, "1 row") {
		t.Errorf("explanation = %q, want generic row-count fallback", final.Explanation)
	}
	if final.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", final.Iterations)
	}
}

func TestExecutionFailureConsumesIterationAndFeedsHint(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT * FROM missing"}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`{"satisfied": true, "reason": "answers the question"}`,
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Error != "" {
		t.Fatalf("final error = %q, want recovery on second iteration", state.Final.Error)
	}
	if state.Final.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", state.Final.Iterations)
	}
	if len(state.Log) != 2 {
		t.Fatalf("iteration log entries = %d, want 2", len(state.Log))
	}
	if state.Log[0].Hint != "" {
		t.Errorf("first iteration hint = %q, want empty", state.Log[0].Hint)
	}
	if !strings.Contains(state.Log[1].Hint, "missing") {
		t.Errorf("second iteration hint = %q, want first failure's message", state.Log[1].Hint)
	}
	// First iteration reached execution but not reason/evaluate.
	if state.Log[0].Outcome != nil {
		t.Errorf("first iteration outcome = %+v, want nil", state.Log[0].Outcome)
	}
}

func TestIterationBudgetExhaustion(t *testing.T) {
	m := newCountAdapter(t)
	unsat := `{"satisfied": false, "reason": "not quite", "refinement": "group by day"}`
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`, `rows explained`, unsat,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`, `rows explained`, unsat,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`, `rows explained`, unsat,
	)

	state, err := o.Ask(context.Background(), "rows per day in t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Iterations != 3 {
		t.Errorf("iterations = %d, want full budget of 3", state.Final.Iterations)
	}
	if state.Final.Error != "" {
		t.Errorf("final error = %q, exhaustion should still return data", state.Final.Error)
	}
	for i, entry := range state.Log {
		if entry.Outcome == nil || entry.Outcome.Satisfied {
			t.Errorf("iteration %d outcome = %+v, want unsatisfied", i+1, entry.Outcome)
		}
	}
	if state.Log[1].Hint != "group by day" {
		t.Errorf("second hint = %q, want evaluator refinement", state.Log[1].Hint)
	}
}

func TestExecutionFailureOnLastIterationAborts(t *testing.T) {
	m := newCountAdapter(t)
	bad := `{"kind": "statement", "code": "SELECT * FROM missing"}`
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		bad, bad, bad,
	)

	state, err := o.Ask(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Error == "" || !strings.Contains(state.Final.Error, "execution failed") {
		t.Fatalf("final = %+v, want terminal execution error", state.Final)
	}
	if state.Final.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", state.Final.Iterations)
	}
}

func TestStoreNotConfigured(t *testing.T) {
	o := newEngine(t, nil,
		`{"requires_data": true, "needs_chart": false}`,
	)

	_, err := o.Ask(context.Background(), "count rows in table t")
	if !errors.Is(err, store.ErrNotConfigured) {
		t.Fatalf("Ask() error = %v, want ErrNotConfigured", err)
	}
}

func TestChatWorksWithoutStore(t *testing.T) {
	o := newEngine(t, nil,
		`{"requires_data": false, "needs_chart": false, "reply": "hello"}`,
	)

	state, err := o.Ask(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Reply != "hello" {
		t.Errorf("reply = %q, want scripted reply", state.Final.Reply)
	}
}

func TestClassificationFailureDefaultsToDataQuery(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`no json at all`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`{"satisfied": true, "reason": "fine"}`,
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Error != "" || state.Final.Iterations != 1 {
		t.Errorf("final = %+v, want optimistic-default data query success", state.Final)
	}
	if state.Responses[0].Success {
		t.Error("first stage result should be the failed classification")
	}
}

func TestChartFailureNeverFailsQuery(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": true}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`{"satisfied": true, "reason": "fine"}`,
		`the chart model rambled with no JSON`,
	)

	state, err := o.Ask(context.Background(), "chart the count")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Error != "" {
		t.Fatalf("final error = %q, chart failure must not fail the query", state.Final.Error)
	}
	if !state.Final.ChartRequired {
		t.Error("ChartRequired = false, want true")
	}
	if state.Final.Chart != nil {
		t.Errorf("chart = %+v, want nil (tabular fallback)", state.Final.Chart)
	}
}

func TestChartSpecAttachedOnSuccess(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": true}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`{"satisfied": true, "reason": "fine"}`,
		`{"kind": "bar", "title": "Row count", "x_field": "count", "y_field": "count"}`,
	)

	state, err := o.Ask(context.Background(), "chart the count")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if state.Final.Chart == nil || state.Final.Chart.Kind != "bar" {
		t.Fatalf("chart = %+v, want bar spec", state.Final.Chart)
	}
}

func TestStageLogAppendOnly(t *testing.T) {
	m := newCountAdapter(t)
	o := newEngine(t, m,
		`{"requires_data": true, "needs_chart": false}`,
		`{"kind": "statement", "code": "SELECT count(*) FROM t"}`,
		`Table t holds 7 rows.`,
		`{"satisfied": true, "reason": "fine"}`,
	)

	state, err := o.Ask(context.Background(), "count rows in table t")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	// understanding, generate, execute, reason, evaluate
	want := []string{"understanding", "codegen", "execution-gate", "reasoning", "evaluation"}
	if len(state.Responses) != len(want) {
		t.Fatalf("stage log entries = %d, want %d", len(state.Responses), len(want))
	}
	for i, agentName := range want {
		if state.Responses[i].Agent != agentName {
			t.Errorf("stage %d agent = %q, want %q", i, state.Responses[i].Agent, agentName)
		}
	}
}
