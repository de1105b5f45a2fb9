package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBEngine executes statements over database/sql, so it serves both
// warehouse drivers without caring which one is behind the pool.
type DBEngine struct {
	db      *sql.DB
	timeout time.Duration
}

func NewDBEngine(db *sql.DB, timeout time.Duration) *DBEngine {
	return &DBEngine{db: db, timeout: timeout}
}

func (e *DBEngine) Execute(ctx context.Context, sqlText string) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("read result columns: %w", err)
	}

	out := make([]map[string]any, 0, 64)
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate result rows: %w", err)
	}

	return Result{Columns: columns, Rows: out, Duration: time.Since(start)}, nil
}

// normalizeValue keeps rows JSON-encodable: drivers hand back []byte
// for text-ish columns, which encoding/json would base64-encode.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return value
	}
}
