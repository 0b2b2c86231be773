package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sqlsage/sqlsage/pkg/models"
)

// Memory is an in-memory store adapter used by tests and zero-config demos.
// Fixture tables back the catalog; statements resolve against canned results
// first (exact match on normalized statement text), then against a minimal
// table scan so simple "select ... from t" statements work without a parser.
type Memory struct {
	mu      sync.RWMutex
	name    string
	tables  map[string][]map[string]any
	columns map[string][]models.ColumnInfo
	canned  map[string]cannedResult

	// Statements records every statement handed to RunStatement, so tests
	// can assert what did (or did not) reach the adapter.
	Statements []string
}

type cannedResult struct {
	rows []map[string]any
	err  error
}

// NewMemory creates an empty in-memory adapter.
func NewMemory(name string) *Memory {
	return &Memory{
		name:    name,
		tables:  make(map[string][]map[string]any),
		columns: make(map[string][]models.ColumnInfo),
		canned:  make(map[string]cannedResult),
	}
}

func (m *Memory) Identity() string { return "memory:" + m.name }

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// AddTable registers a fixture table with explicit column metadata.
func (m *Memory) AddTable(name string, columns []models.ColumnInfo, rows []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = rows
	m.columns[name] = columns
}

// Stub registers a canned result for an exact statement (normalized by
// lowercasing and whitespace collapsing).
func (m *Memory) Stub(statement string, rows []map[string]any, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canned[normalizeStatement(statement)] = cannedResult{rows: rows, err: err}
}

// FetchCatalog derives a snapshot from the fixture tables.
func (m *Memory) FetchCatalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := &models.CatalogSnapshot{FetchedAt: time.Now().UTC()}
	for _, name := range names {
		snapshot.Tables = append(snapshot.Tables, models.TableInfo{
			Name:     name,
			Columns:  m.columns[name],
			RowCount: int64(len(m.tables[name])),
		})
	}
	return snapshot, nil
}

// RunStatement resolves canned results first, then falls back to a trivial
// table scan: the first fixture table named in the statement is returned
// whole, or as a single count row for count(*) statements.
func (m *Memory) RunStatement(ctx context.Context, statement string) ([]map[string]any, error) {
	m.mu.Lock()
	m.Statements = append(m.Statements, statement)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	norm := normalizeStatement(statement)
	if res, ok := m.canned[norm]; ok {
		return res.rows, res.err
	}

	for name, rows := range m.tables {
		if !containsWord(norm, strings.ToLower(name)) {
			continue
		}
		if strings.Contains(norm, "count(") {
			return []map[string]any{{"count": int64(len(rows))}}, nil
		}
		out := make([]map[string]any, len(rows))
		copy(out, rows)
		return out, nil
	}
	return nil, fmt.Errorf("memory adapter: no fixture matches statement %q", statement)
}

func normalizeStatement(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsWord reports whether the normalized statement names the table as a
// standalone token. Substring matching would make a table named "t" match
// every statement.
func containsWord(norm, name string) bool {
	for _, tok := range strings.FieldsFunc(norm, func(r rune) bool {
		return r == ' ' || r == ',' || r == '(' || r == ')' || r == ';'
	}) {
		if tok == name {
			return true
		}
	}
	return false
}
