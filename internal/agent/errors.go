package agent

import "errors"

// Invocation failures. Every one of these is reported inside a RunResult with
// Success=false; none escapes an agent boundary as a raised error.
var (
	// ErrToolNotFound means no contract is registered under the invoked name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrValidationFailed means the input or output did not match the
	// contract's declared shape.
	ErrValidationFailed = errors.New("validation failed")

	// ErrEmptyCompletion means the completion capability returned no text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrMalformedCompletion means no JSON object could be isolated from the
	// completion text, or the isolated object failed shape validation.
	ErrMalformedCompletion = errors.New("malformed completion")

	// ErrExecutionFault wraps a panic raised by a tool handler.
	ErrExecutionFault = errors.New("execution fault")
)
