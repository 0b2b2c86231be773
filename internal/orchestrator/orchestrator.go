// Package orchestrator drives the fixed stage sequence that turns a question
// into a data-backed answer:
//
//	Understanding → (chat reply | data query)
//	data query → { Generate → Execute → Reason → Evaluate }* → Chart? → Finalize
//
// Stages run strictly sequentially; each begins only after the previous
// stage's RunResult is captured. The refinement loop is bounded by the
// configured iteration ceiling. Execution failure consumes an iteration and
// feeds the error text into the next generation; generation failure is
// terminal; reasoning and evaluation failures fall back to defaults instead
// of failing the query.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sqlsage/sqlsage/internal/analyst"
	"github.com/sqlsage/sqlsage/internal/catalog"
	"github.com/sqlsage/sqlsage/internal/gate"
	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

var tracer = otel.Tracer("sqlsage/orchestrator")

// DefaultMaxIterations bounds the refinement loop when unconfigured.
const DefaultMaxIterations = 3

// genericHint feeds the next generation when evaluation gave no refinement.
const genericHint = "the previous result did not satisfy the request"

// Config tunes loop behavior.
type Config struct {
	// MaxIterations is the refinement-loop ceiling (default 3).
	MaxIterations int
	// OptimisticClassification defaults a failed Understanding stage to
	// "requires data, no chart" instead of aborting.
	OptimisticClassification bool
	// OptimisticEvaluation defaults a failed Evaluate stage to "satisfied"
	// so a broken judge cannot loop unproductively.
	OptimisticEvaluation bool
}

// Orchestrator processes one query at a time; concurrent queries get
// independent OrchestrationState and share only the catalog cache.
type Orchestrator struct {
	suite   *analyst.Suite
	gate    *gate.Gate
	adapter store.Adapter
	catalog *catalog.Cache
	cfg     Config
}

// New assembles an orchestrator. adapter may be nil: conversational queries
// still work, data queries fail with store.ErrNotConfigured.
func New(suite *analyst.Suite, g *gate.Gate, adapter store.Adapter, cache *catalog.Cache, cfg Config) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Orchestrator{suite: suite, gate: g, adapter: adapter, catalog: cache, cfg: cfg}
}

// Ask processes one query to completion. The returned state always carries a
// set FinalResult; the only error ever returned directly is
// store.ErrNotConfigured, since no partial result is possible without a store.
func (o *Orchestrator) Ask(ctx context.Context, query string) (*models.OrchestrationState, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.ask")
	defer span.End()

	state := &models.OrchestrationState{
		ID:        uuid.New().String(),
		Query:     query,
		StartedAt: time.Now().UTC(),
	}

	log.Info().Str("query_id", state.ID).Str("query", query).Msg("query started")

	// ── Understanding ───────────────────────────────────────
	clsRes := o.suite.Understanding.Invoke(ctx, analyst.ToolClassify, map[string]any{"query": query})
	state.Responses = append(state.Responses, clsRes)

	var cls models.Classification
	switch {
	case clsRes.Success:
		cls = clsRes.Output.(models.Classification)
	case o.cfg.OptimisticClassification:
		log.Warn().Str("query_id", state.ID).Str("error", clsRes.Error).
			Msg("classification failed, defaulting to data query")
		cls = models.Classification{RequiresData: true}
	default:
		o.finalize(state, &models.FinalResult{Error: "classification failed: " + clsRes.Error})
		return state, nil
	}

	// ── Chat short-circuit ──────────────────────────────────
	if !cls.RequiresData {
		reply := cls.Reply
		if reply == "" {
			reply = "I answer questions about the connected data. Ask me about your tables."
		}
		o.finalize(state, &models.FinalResult{Reply: reply})
		return state, nil
	}

	// ── Catalog snapshot (once per query) ───────────────────
	if o.adapter == nil {
		return nil, store.ErrNotConfigured
	}
	snapshot, err := o.catalog.Snapshot(ctx, o.adapter)
	if err != nil {
		if err == store.ErrNotConfigured {
			return nil, err
		}
		o.finalize(state, &models.FinalResult{Error: "catalog fetch failed: " + err.Error()})
		return state, nil
	}
	state.Catalog = snapshot
	catalogText := analyst.RenderCatalog(snapshot)

	// ── Refinement loop ─────────────────────────────────────
	var (
		rows        []map[string]any
		explanation string
		outcome     models.EvaluationOutcome
		hint        string
	)

	for i := 1; i <= o.cfg.MaxIterations; i++ {
		state.Iterations = i
		iter := models.IterationInfo{Index: i, Hint: hint}
		span.SetAttributes(attribute.Int("iterations", i))

		// Generate
		genRes := o.suite.CodeGen.Invoke(ctx, analyst.ToolGenerate, map[string]any{
			"query":       query,
			"catalog":     catalogText,
			"needs_chart": cls.NeedsChart,
			"hint":        hint,
		})
		state.Responses = append(state.Responses, genRes)
		if !genRes.Success {
			state.Log = append(state.Log, iter)
			o.finalize(state, &models.FinalResult{
				Error:      "code generation failed: " + genRes.Error,
				Iterations: state.Iterations,
			})
			return state, nil
		}
		artifact := genRes.Output.(models.CodeArtifact)

		// Execute
		exec := o.gate.Execute(ctx, artifact)
		state.Responses = append(state.Responses, execRunResult(exec))
		if !exec.Success {
			state.Log = append(state.Log, iter)
			if i < o.cfg.MaxIterations {
				hint = exec.Error
				continue
			}
			o.finalize(state, &models.FinalResult{
				Error:      "execution failed: " + exec.Error,
				Iterations: state.Iterations,
			})
			return state, nil
		}
		rows = exec.Rows
		rowsText := analyst.RenderRows(rows, 50)

		// Reason
		reasonRes := o.suite.Reasoning.Invoke(ctx, analyst.ToolReason, map[string]any{
			"query":     query,
			"rows":      rowsText,
			"row_count": len(rows),
		})
		state.Responses = append(state.Responses, reasonRes)
		if reasonRes.Success {
			explanation = reasonRes.Output.(string)
		} else {
			explanation = fmt.Sprintf("The query completed and returned %d row(s).", len(rows))
			log.Warn().Str("query_id", state.ID).Str("error", reasonRes.Error).
				Msg("reasoning failed, using generic explanation")
		}

		// Evaluate
		evalRes := o.suite.Evaluation.Invoke(ctx, analyst.ToolEvaluate, map[string]any{
			"query":       query,
			"rows":        rowsText,
			"explanation": explanation,
		})
		state.Responses = append(state.Responses, evalRes)
		if evalRes.Success {
			outcome = evalRes.Output.(models.EvaluationOutcome)
		} else if o.cfg.OptimisticEvaluation {
			outcome = models.EvaluationOutcome{
				Satisfied: true,
				Reason:    "evaluation unavailable, accepting result",
			}
			log.Warn().Str("query_id", state.ID).Str("error", evalRes.Error).
				Msg("evaluation failed, defaulting to satisfied")
		} else {
			outcome = models.EvaluationOutcome{
				Satisfied: false,
				Reason:    "evaluation unavailable: " + evalRes.Error,
			}
		}

		iterOutcome := outcome
		iter.Outcome = &iterOutcome
		state.Log = append(state.Log, iter)

		if outcome.Satisfied {
			break
		}
		hint = outcome.Refinement
		if hint == "" {
			hint = genericHint
		}
	}

	// ── Chart (optional, never fatal) ───────────────────────
	var chart *models.ChartSpec
	if cls.NeedsChart && len(rows) > 0 {
		chartRes := o.suite.Chart.Invoke(ctx, analyst.ToolChart, map[string]any{
			"query":   query,
			"columns": columnNames(rows[0]),
		})
		state.Responses = append(state.Responses, chartRes)
		if chartRes.Success {
			spec := chartRes.Output.(models.ChartSpec)
			chart = &spec
		} else {
			log.Warn().Str("query_id", state.ID).Str("error", chartRes.Error).
				Msg("chart generation failed, falling back to tabular presentation")
		}
	}

	// ── Finalize ────────────────────────────────────────────
	o.finalize(state, &models.FinalResult{
		Data:          rows,
		Explanation:   explanation,
		Insights:      outcome.Reason,
		ChartRequired: cls.NeedsChart,
		Chart:         chart,
		Iterations:    state.Iterations,
	})
	return state, nil
}

// finalize sets the final result exactly once and stamps total elapsed time.
func (o *Orchestrator) finalize(state *models.OrchestrationState, final *models.FinalResult) {
	if state.Final != nil {
		return
	}
	final.Elapsed = time.Since(state.StartedAt)
	state.Final = final

	evt := log.Info()
	if final.Error != "" {
		evt = log.Error()
	}
	evt.Str("query_id", state.ID).
		Int("iterations", state.Iterations).
		Dur("elapsed", final.Elapsed).
		Str("error", final.Error).
		Msg("query finished")
}

// execRunResult casts a gate outcome into the stage log's RunResult form.
func execRunResult(exec models.ExecutionResult) models.RunResult {
	rr := models.RunResult{
		Success:   exec.Success,
		Error:     exec.Error,
		Elapsed:   exec.Elapsed,
		Agent:     "execution-gate",
		Timestamp: time.Now().UTC(),
	}
	if exec.Success {
		rr.Output = exec.Rows
	}
	return rr
}

func columnNames(row map[string]any) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
