// Package agent implements the tool runtime: named, shape-validated
// operations bundled with a bound text-completion capability.
//
// The invariant that matters here is containment. A tool handler may return
// an error, panic, or produce output that violates its declared shape — in
// every case the caller receives a well-formed RunResult with Success=false
// and a descriptive error string. No fault crosses the agent boundary.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/pkg/models"
)

var tracer = otel.Tracer("sqlsage/agent")

// Handler executes one tool invocation. Input has already been validated
// against the contract's input shape when the handler runs.
type Handler func(ctx context.Context, input map[string]any) (any, error)

// ToolContract is a named operation with a validated input shape, an optional
// validated output shape, and a handler. Immutable after registration.
type ToolContract struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Handler      Handler
}

// Agent is a named bundle of tool contracts plus a completion capability.
type Agent struct {
	name      string
	completer llm.Completer
	tools     map[string]*registeredTool
}

type registeredTool struct {
	contract ToolContract
	input    *compiledSchema
	output   *compiledSchema
}

// New creates an agent bound to the given completion capability.
func New(name string, completer llm.Completer) *Agent {
	return &Agent{
		name:      name,
		completer: completer,
		tools:     make(map[string]*registeredTool),
	}
}

// Name returns the agent's name, stamped on every RunResult it produces.
func (a *Agent) Name() string { return a.name }

// Register adds a contract keyed by name. Duplicate registration is a
// construction-time invariant violation and is rejected rather than silently
// overwritten.
func (a *Agent) Register(c ToolContract) error {
	if c.Name == "" {
		return fmt.Errorf("agent %s: tool contract has no name", a.name)
	}
	if c.Handler == nil {
		return fmt.Errorf("agent %s: tool %q has no handler", a.name, c.Name)
	}
	if _, exists := a.tools[c.Name]; exists {
		return fmt.Errorf("agent %s: tool %q already registered", a.name, c.Name)
	}

	rt := &registeredTool{contract: c}
	var err error
	if c.InputSchema != nil {
		if rt.input, err = compile(c.Name+"/input", c.InputSchema); err != nil {
			return fmt.Errorf("agent %s: tool %q input schema: %w", a.name, c.Name, err)
		}
	}
	if c.OutputSchema != nil {
		if rt.output, err = compile(c.Name+"/output", c.OutputSchema); err != nil {
			return fmt.Errorf("agent %s: tool %q output schema: %w", a.name, c.Name, err)
		}
	}

	a.tools[c.Name] = rt
	return nil
}

// MustRegister is Register for construction-time wiring where a bad contract
// is a programming error.
func (a *Agent) MustRegister(c ToolContract) {
	if err := a.Register(c); err != nil {
		panic(err)
	}
}

// Invoke runs the named tool against the input and always returns a
// RunResult stamped with elapsed wall-clock time and a timestamp.
func (a *Agent) Invoke(ctx context.Context, name string, input map[string]any) models.RunResult {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "agent.invoke")
	span.SetAttributes(
		attribute.String("agent.name", a.name),
		attribute.String("agent.tool", name),
	)
	defer span.End()

	rt, ok := a.tools[name]
	if !ok {
		return a.fail(start, fmt.Errorf("%w: %q", ErrToolNotFound, name))
	}

	if rt.input != nil {
		if err := rt.input.validate(input); err != nil {
			return a.fail(start, fmt.Errorf("%w: tool %q input: %v", ErrValidationFailed, name, err))
		}
	}

	output, err := a.run(ctx, rt.contract, input)
	if err != nil {
		return a.fail(start, err)
	}

	if rt.output != nil {
		if err := rt.output.validate(output); err != nil {
			return a.fail(start, fmt.Errorf("%w: tool %q output: %v", ErrValidationFailed, name, err))
		}
	}

	return models.RunResult{
		Success:   true,
		Output:    output,
		Elapsed:   time.Since(start),
		Agent:     a.name,
		Timestamp: time.Now().UTC(),
	}
}

// run executes the handler with panic containment.
func (a *Agent) run(ctx context.Context, c ToolContract, input map[string]any) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("agent", a.name).
				Str("tool", c.Name).
				Any("panic", r).
				Msg("tool handler panicked")
			output = nil
			err = fmt.Errorf("%w: tool %q panicked: %v", ErrExecutionFault, c.Name, r)
		}
	}()
	return c.Handler(ctx, input)
}

func (a *Agent) fail(start time.Time, err error) models.RunResult {
	log.Debug().Str("agent", a.name).Err(err).Msg("tool invocation failed")
	return models.RunResult{
		Success:   false,
		Error:     err.Error(),
		Elapsed:   time.Since(start),
		Agent:     a.name,
		Timestamp: time.Now().UTC(),
	}
}
