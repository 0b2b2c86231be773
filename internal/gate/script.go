package gate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"
)

// scriptDenylist names the restricted capabilities a transformation script
// may not reference: process control, filesystem, network, module loading,
// and dynamic evaluation. Identifiers are matched as whole words so a field
// named "processed" is not a false positive.
var scriptDenylist = []string{
	"process", "child_process", "subprocess", "spawn", "fork", "popen",
	"exec", "syscall", "system",
	"os", "fs", "readfile", "writefile", "unlink", "chmod",
	"net", "http", "https", "fetch", "socket", "dial",
	"import", "require", "module",
	"eval", "compile",
}

var scriptDenyPattern = regexp.MustCompile(
	`(?i)\b(` + strings.Join(scriptDenylist, "|") + `)\b`)

// CheckScript rejects scripts referencing a denylisted capability name. Like
// CheckStatement this is the first layer only; the authoritative boundary is
// the evaluation environment, which exposes nothing beyond the three bound
// capabilities.
func CheckScript(code string) error {
	if m := scriptDenyPattern.FindString(code); m != "" {
		return fmt.Errorf("%w: script references %q", ErrForbiddenCapability, m)
	}
	return nil
}

// runScript evaluates a transformation script inside a restricted scope.
// The scope exposes exactly three capabilities:
//
//	query(statement)        — run a declarative statement, returns rows;
//	                          subject to the statement denylist recursively
//	sql(template, args...)  — build a statement from a template and run it
//	                          through the same gated fetch
//	log(value)              — structured debug logging
//
// Every denylisted name is additionally shadowed to an inert nil binding, so
// even a script that slips past the word check finds no capability behind
// the name. The script's value becomes the result row-set; non-array values
// are wrapped in a single-element set.
func (g *Gate) runScript(ctx context.Context, code string) ([]map[string]any, error) {
	if err := CheckScript(code); err != nil {
		return nil, err
	}

	fetch := func(statement string) ([]map[string]any, error) {
		if err := CheckStatement(statement); err != nil {
			return nil, err
		}
		if g.adapter == nil {
			return nil, ErrStoreNotConfigured
		}
		return g.adapter.RunStatement(ctx, statement)
	}

	env := map[string]any{
		"query": fetch,
		"sql": func(template string, args ...any) ([]map[string]any, error) {
			return fetch(fmt.Sprintf(template, args...))
		},
		"log": func(v any) bool {
			log.Debug().Any("value", v).Msg("script log")
			return true
		},
	}
	for _, name := range scriptDenylist {
		if _, bound := env[name]; !bound {
			env[name] = nil
		}
	}

	program, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}
	return shapeRows(out), nil
}

// shapeRows coerces a script result into a row-set.
func shapeRows(v any) []map[string]any {
	switch rows := v.(type) {
	case nil:
		return nil
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, item := range rows {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			} else {
				out = append(out, map[string]any{"value": item})
			}
		}
		return out
	case map[string]any:
		return []map[string]any{rows}
	default:
		return []map[string]any{{"value": v}}
	}
}
