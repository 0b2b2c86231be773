// Package gate validates and runs generated code inside a restricted
// capability set. Two execution kinds exist — declarative statements against
// the store adapter and transformation scripts in a sandboxed expression
// scope — and exactly one kind runs per invocation.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

var (
	// ErrUnsafeStatement means a statement matched the mutating-keyword
	// denylist and was never sent to the store.
	ErrUnsafeStatement = errors.New("unsafe statement")

	// ErrForbiddenCapability means a script referenced a restricted
	// capability name and was never evaluated.
	ErrForbiddenCapability = errors.New("forbidden capability")

	// ErrStoreNotConfigured mirrors store.ErrNotConfigured at the gate
	// boundary: no statement can be dispatched without a connection.
	ErrStoreNotConfigured = store.ErrNotConfigured
)

// Gate is the execution gate bound to one store adapter.
type Gate struct {
	adapter store.Adapter
}

// New creates a gate. A nil adapter is permitted; executing a statement then
// fails with ErrStoreNotConfigured.
func New(adapter store.Adapter) *Gate {
	return &Gate{adapter: adapter}
}

// Execute validates and runs one code artifact, stamping elapsed time on the
// result whatever the outcome.
func (g *Gate) Execute(ctx context.Context, artifact models.CodeArtifact) models.ExecutionResult {
	start := time.Now()

	var rows []map[string]any
	var err error
	switch artifact.Kind {
	case models.KindStatement:
		rows, err = g.runStatement(ctx, artifact.Code)
	case models.KindScript:
		rows, err = g.runScript(ctx, artifact.Code)
	default:
		// Code generation normalizes every kind to statement or script, so
		// this branch only fires for artifacts built by hand.
		err = errors.New("unknown code kind: " + string(artifact.Kind))
	}

	elapsed := time.Since(start)
	if err != nil {
		log.Warn().Str("kind", string(artifact.Kind)).Err(err).Msg("execution rejected or failed")
		return models.ExecutionResult{Success: false, Error: err.Error(), Elapsed: elapsed}
	}
	return models.ExecutionResult{Success: true, Rows: rows, Elapsed: elapsed}
}

func (g *Gate) runStatement(ctx context.Context, statement string) ([]map[string]any, error) {
	if err := CheckStatement(statement); err != nil {
		return nil, err
	}
	if g.adapter == nil {
		return nil, ErrStoreNotConfigured
	}
	return g.adapter.RunStatement(ctx, statement)
}
