package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/pkg/models"
)

// Postgres is the pgx-backed store adapter. Each call dials its own
// connection and closes it when done.
type Postgres struct {
	url string
}

// NewPostgres creates a Postgres adapter for the given connection URL.
func NewPostgres(url string) *Postgres {
	return &Postgres{url: url}
}

// Identity names the data source without exposing credentials. It keys the
// catalog cache, so two adapters for the same host/database share entries.
func (p *Postgres) Identity() string {
	u, err := url.Parse(p.url)
	if err != nil {
		return "postgres"
	}
	return u.Redacted()
}

func (p *Postgres) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return conn, nil
}

// Ping checks database reachability.
func (p *Postgres) Ping(ctx context.Context) error {
	conn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}

// Close is a no-op; connections are per-call.
func (p *Postgres) Close() error { return nil }

const catalogQuery = `
SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'YES'
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

const rowCountQuery = `
SELECT relname, GREATEST(reltuples::bigint, 0)
FROM pg_class
WHERE relkind = 'r' AND relnamespace = 'public'::regnamespace`

// FetchCatalog crawls information_schema for tables and columns, with
// planner row estimates from pg_class (cheap, no table scans).
func (p *Postgres) FetchCatalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, catalogQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}

	var order []string
	tables := make(map[string]*models.TableInfo)
	for rows.Next() {
		var table, column, dataType string
		var nullable bool
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan column: %w", err)
		}
		ti, ok := tables[table]
		if !ok {
			ti = &models.TableInfo{Name: table}
			tables[table] = ti
			order = append(order, table)
		}
		ti.Columns = append(ti.Columns, models.ColumnInfo{Name: column, Type: dataType, Nullable: nullable})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch columns: %w", err)
	}

	counts, err := conn.Query(ctx, rowCountQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch row counts: %w", err)
	}
	for counts.Next() {
		var name string
		var estimate int64
		if err := counts.Scan(&name, &estimate); err != nil {
			counts.Close()
			return nil, fmt.Errorf("scan row count: %w", err)
		}
		if ti, ok := tables[name]; ok {
			ti.RowCount = estimate
		}
	}
	counts.Close()
	if err := counts.Err(); err != nil {
		return nil, fmt.Errorf("fetch row counts: %w", err)
	}

	snapshot := &models.CatalogSnapshot{}
	for _, name := range order {
		snapshot.Tables = append(snapshot.Tables, *tables[name])
	}

	log.Debug().Int("tables", len(snapshot.Tables)).Msg("catalog fetched")
	return snapshot, nil
}

// RunStatement executes one statement and materializes the result set as
// column-name → value maps.
func (p *Postgres) RunStatement(ctx context.Context, statement string) ([]map[string]any, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("run statement: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run statement: %w", err)
	}
	return out, nil
}
