// Package query executes guarded read-only SQL against the warehouse
// and returns rows in a transport-friendly shape.
package query

import (
	"context"
	"time"
)

// Result holds one executed query's output. Columns preserves the
// statement's projection order; Rows are keyed by column name.
type Result struct {
	Columns  []string
	Rows     []map[string]any
	Duration time.Duration
}

// Engine runs one statement to completion.
type Engine interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}
