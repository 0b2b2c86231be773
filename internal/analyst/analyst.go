// Package analyst builds the five stage agents of the answer pipeline:
// understanding (classify), codegen (generate), reasoning (explain),
// evaluation (judge), and chart (visualization spec). Each stage is a single
// tool contract on its own agent, so every stage outcome arrives as a
// RunResult and no stage fault escapes as a raised error.
package analyst

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlsage/sqlsage/internal/agent"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// Tool names, one per stage.
const (
	ToolClassify = "classify_query"
	ToolGenerate = "generate_code"
	ToolReason   = "explain_result"
	ToolEvaluate = "evaluate_answer"
	ToolChart    = "suggest_chart"
)

// Suite bundles the stage agents consumed by the orchestrator.
type Suite struct {
	Understanding *agent.Agent
	CodeGen       *agent.Agent
	Reasoning     *agent.Agent
	Evaluation    *agent.Agent
	Chart         *agent.Agent
}

// Config tunes stage behavior.
type Config struct {
	// RowLimit is enforced on generated statements lacking a LIMIT clause.
	RowLimit int
}

// New wires the stage agents onto one completion capability.
func New(completer llm.Completer, cfg Config) *Suite {
	s := &Suite{
		Understanding: agent.New("understanding", completer),
		CodeGen:       agent.New("codegen", completer),
		Reasoning:     agent.New("reasoning", completer),
		Evaluation:    agent.New("evaluation", completer),
		Chart:         agent.New("chart", completer),
	}
	s.Understanding.MustRegister(classifyContract(s.Understanding))
	s.CodeGen.MustRegister(generateContract(s.CodeGen, cfg.RowLimit))
	s.Reasoning.MustRegister(reasonContract(s.Reasoning))
	s.Evaluation.MustRegister(evaluateContract(s.Evaluation))
	s.Chart.MustRegister(chartContract(s.Chart))
	return s
}

// decode converts a validated completion object into a typed stage output.
func decode[T any](obj map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("re-marshal completion object: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode completion object: %w", err)
	}
	return out, nil
}

// RenderCatalog flattens a snapshot into the schema block the prompts embed.
func RenderCatalog(snapshot *models.CatalogSnapshot) string {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return "(no tables)"
	}
	var b strings.Builder
	for _, t := range snapshot.Tables {
		b.WriteString(t.Name)
		b.WriteString(" (")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteByte(' ')
			b.WriteString(c.Type)
			if c.Nullable {
				b.WriteString(" null")
			}
		}
		fmt.Fprintf(&b, ") ~%d rows\n", t.RowCount)
	}
	return b.String()
}

// RenderRows serializes a row sample for the reasoning and evaluation
// prompts, truncating large sets so prompts stay bounded.
func RenderRows(rows []map[string]any, max int) string {
	if len(rows) == 0 {
		return "(empty result set)"
	}
	sample := rows
	truncated := false
	if max > 0 && len(rows) > max {
		sample = rows[:max]
		truncated = true
	}
	raw, err := json.Marshal(sample)
	if err != nil {
		return fmt.Sprintf("(unserializable result set of %d rows)", len(rows))
	}
	out := string(raw)
	if truncated {
		out += fmt.Sprintf("\n(+%d more rows)", len(rows)-max)
	}
	return out
}
