package gate

import (
	"fmt"
	"regexp"
	"strings"
)

// statementDenylist blocks mutating and structural keywords in generated
// statements. Matching is case-insensitive on word boundaries, so a column
// named "updated_at" passes while "UPDATE t SET ..." does not.
var statementDenylist = regexp.MustCompile(
	`(?i)\b(drop|alter|delete|truncate|grant|revoke|insert|update)\b`)

// limitClause detects an existing row-limiting clause.
var limitClause = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// CheckStatement rejects statements containing denylisted keywords. A
// rejected statement never reaches the store adapter.
//
// This is a first-layer filter, not a SQL parser: it does not defeat
// comment-based statement chaining or dialect-specific mutation syntax. The
// adapter connection should additionally be read-only in production.
func CheckStatement(statement string) error {
	if m := statementDenylist.FindString(statement); m != "" {
		return fmt.Errorf("%w: statement contains %q", ErrUnsafeStatement, strings.ToUpper(m))
	}
	return nil
}

// EnforceRowLimit appends a LIMIT clause when the statement has none. A
// statement already carrying one is returned unmodified.
func EnforceRowLimit(statement string, limit int) string {
	if limit <= 0 || limitClause.MatchString(statement) {
		return statement
	}
	trimmed := strings.TrimRight(strings.TrimSpace(statement), ";")
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}
