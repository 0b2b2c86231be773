package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlsage/sqlsage/internal/agent"
	"github.com/sqlsage/sqlsage/internal/gate"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// ── Understanding ───────────────────────────────────────────

var classificationShape = map[string]any{
	"type":     "object",
	"required": []any{"requires_data"},
	"properties": map[string]any{
		"requires_data": map[string]any{"type": "boolean"},
		"needs_chart":   map[string]any{"type": "boolean"},
		"reply":         map[string]any{"type": "string"},
	},
}

func classifyContract(a *agent.Agent) agent.ToolContract {
	return agent.ToolContract{
		Name:        ToolClassify,
		Description: "classify a question as conversational or data-seeking",
		InputSchema: map[string]any{
			"type":       "object",
			"required":   []any{"query"},
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
		},
		Handler: func(ctx context.Context, input map[string]any) (any, error) {
			query, _ := input["query"].(string)
			obj, err := a.CompleteObject(ctx, classifySystem, query, classificationShape)
			if err != nil {
				return nil, err
			}
			return decode[models.Classification](obj)
		},
	}
}

// ── Generate ────────────────────────────────────────────────

var artifactShape = map[string]any{
	"type":     "object",
	"required": []any{"code"},
	"properties": map[string]any{
		"kind": map[string]any{"type": "string"},
		"code": map[string]any{"type": "string"},
	},
}

func generateContract(a *agent.Agent, rowLimit int) agent.ToolContract {
	return agent.ToolContract{
		Name:        ToolGenerate,
		Description: "generate one code artifact answering the question",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"query", "catalog"},
			"properties": map[string]any{
				"query":       map[string]any{"type": "string"},
				"catalog":     map[string]any{"type": "string"},
				"needs_chart": map[string]any{"type": "boolean"},
				"hint":        map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, input map[string]any) (any, error) {
			query, _ := input["query"].(string)
			catalogText, _ := input["catalog"].(string)
			hint, _ := input["hint"].(string)
			needsChart, _ := input["needs_chart"].(bool)

			var b strings.Builder
			fmt.Fprintf(&b, "Schema:\n%s\nQuestion: %s\n", catalogText, query)
			if needsChart {
				b.WriteString("The answer will be charted; prefer results with one label column and one numeric column.\n")
			}
			if hint != "" {
				fmt.Fprintf(&b, "The previous attempt was not good enough. Feedback: %s\n", hint)
			}

			obj, err := a.CompleteObject(ctx, generateSystem, b.String(), artifactShape)
			if err != nil {
				return nil, err
			}
			artifact, err := decode[models.CodeArtifact](obj)
			if err != nil {
				return nil, err
			}

			artifact.Kind = normalizeKind(string(artifact.Kind))
			if artifact.Kind == models.KindStatement {
				artifact.Code = gate.EnforceRowLimit(artifact.Code, rowLimit)
			}
			return artifact, nil
		},
	}
}

// normalizeKind maps generator vocabulary onto the two execution kinds.
// Anything unrecognized falls back to the script kind.
func normalizeKind(kind string) models.CodeKind {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "statement", "sql", "query", "select":
		return models.KindStatement
	default:
		return models.KindScript
	}
}

// ── Reason ──────────────────────────────────────────────────

func reasonContract(a *agent.Agent) agent.ToolContract {
	return agent.ToolContract{
		Name:        ToolReason,
		Description: "explain a result set in plain language",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"query", "rows"},
			"properties": map[string]any{
				"query":     map[string]any{"type": "string"},
				"rows":      map[string]any{"type": "string"},
				"row_count": map[string]any{"type": "integer"},
			},
		},
		Handler: func(ctx context.Context, input map[string]any) (any, error) {
			query, _ := input["query"].(string)
			rows, _ := input["rows"].(string)

			user := fmt.Sprintf("Question: %s\nResult rows: %s", query, rows)
			text, err := a.Complete(ctx, reasonSystem, user)
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(text), nil
		},
	}
}

// ── Evaluate ────────────────────────────────────────────────

var evaluationShape = map[string]any{
	"type":     "object",
	"required": []any{"satisfied"},
	"properties": map[string]any{
		"satisfied":  map[string]any{"type": "boolean"},
		"reason":     map[string]any{"type": "string"},
		"refinement": map[string]any{"type": "string"},
	},
}

func evaluateContract(a *agent.Agent) agent.ToolContract {
	return agent.ToolContract{
		Name:        ToolEvaluate,
		Description: "judge whether the result answers the original question",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"query", "rows"},
			"properties": map[string]any{
				"query":       map[string]any{"type": "string"},
				"rows":        map[string]any{"type": "string"},
				"explanation": map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, input map[string]any) (any, error) {
			query, _ := input["query"].(string)
			rows, _ := input["rows"].(string)
			explanation, _ := input["explanation"].(string)

			user := fmt.Sprintf("Original question: %s\nResult rows: %s\nExplanation given: %s",
				query, rows, explanation)
			obj, err := a.CompleteObject(ctx, evaluateSystem, user, evaluationShape)
			if err != nil {
				return nil, err
			}
			return decode[models.EvaluationOutcome](obj)
		},
	}
}

// ── Chart ───────────────────────────────────────────────────

var chartShape = map[string]any{
	"type":     "object",
	"required": []any{"kind"},
	"properties": map[string]any{
		"kind": map[string]any{
			"type": "string",
			"enum": []any{"bar", "line", "scatter", "pie", "table"},
		},
		"title":   map[string]any{"type": "string"},
		"x_field": map[string]any{"type": "string"},
		"y_field": map[string]any{"type": "string"},
	},
}

func chartContract(a *agent.Agent) agent.ToolContract {
	return agent.ToolContract{
		Name:        ToolChart,
		Description: "pick a visualization spec for a result set",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"query", "columns"},
			"properties": map[string]any{
				"query":   map[string]any{"type": "string"},
				"columns": map[string]any{"type": "string"},
			},
		},
		Handler: func(ctx context.Context, input map[string]any) (any, error) {
			query, _ := input["query"].(string)
			columns, _ := input["columns"].(string)

			user := fmt.Sprintf("Question: %s\nResult columns: %s", query, columns)
			obj, err := a.CompleteObject(ctx, chartSystem, user, chartShape)
			if err != nil {
				return nil, err
			}
			return decode[models.ChartSpec](obj)
		},
	}
}
