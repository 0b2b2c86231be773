package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlsage/sqlsage/internal/llm"
)

// Complete runs a free-text completion with the agent's bound capability.
// Agent-level defaults apply unless overridden per call. An empty completion
// is a hard failure.
func (a *Agent) Complete(ctx context.Context, system, user string, opts ...llm.Option) (string, error) {
	text, err := a.completer.Complete(ctx, system, user, opts...)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// CompleteObject runs a completion and extracts a single JSON object from the
// response text, preferring a fenced code block if present, else the first
// top-level brace-delimited span. When shape is non-nil the object is
// validated against it. Failures surface as ErrMalformedCompletion.
func (a *Agent) CompleteObject(ctx context.Context, system, user string, shape map[string]any, opts ...llm.Option) (map[string]any, error) {
	text, err := a.Complete(ctx, system, user, opts...)
	if err != nil {
		return nil, err
	}

	span := extractJSON(text)
	if span == "" {
		return nil, fmt.Errorf("%w: no JSON object in completion", ErrMalformedCompletion)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
	}

	if shape != nil {
		cs, err := compile("completion", shape)
		if err != nil {
			return nil, fmt.Errorf("compile completion shape: %w", err)
		}
		if err := cs.validate(obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
		}
	}
	return obj, nil
}

// extractJSON isolates one JSON object from completion text. Fenced code
// blocks win over bare braces so prose around the block cannot confuse the
// span scan.
func extractJSON(text string) string {
	if fenced := extractFenced(text); fenced != "" {
		if span := braceSpan(fenced); span != "" {
			return span
		}
	}
	return braceSpan(text)
}

// extractFenced returns the body of the first ``` fence, tolerating an
// optional language tag on the opening line.
func extractFenced(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return ""
	}
	rest := text[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line ("json", "sql", ...).
		if tag := strings.TrimSpace(rest[:nl]); tag == "" || !strings.ContainsAny(tag, "{}") {
			rest = rest[nl+1:]
		}
	}
	close := strings.Index(rest, "```")
	if close < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:close])
}

// braceSpan returns the first balanced top-level {...} span, skipping braces
// inside string literals.
func braceSpan(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
