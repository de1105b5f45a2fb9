package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Table name prefixes that mark internal/system tables regardless of
// the configured namespace.
var systemPrefixes = []string{"pg_", "duckdb_", "sqlite_", "information_schema"}

const introspectSQL = `
SELECT t.table_name, c.column_name, c.data_type
FROM information_schema.tables t
JOIN information_schema.columns c
  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE t.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY t.table_name, c.ordinal_position`

// Introspector builds snapshots from the warehouse's own catalog.
type Introspector struct {
	db        *sql.DB
	namespace string
}

func NewIntrospector(db *sql.DB, namespace string) *Introspector {
	return &Introspector{db: db, namespace: namespace}
}

func (i *Introspector) Snapshot(ctx context.Context) (Snapshot, error) {
	if i.db == nil {
		return Snapshot{}, fmt.Errorf("warehouse handle is required")
	}

	rows, err := i.db.QueryContext(ctx, introspectSQL, i.namespace)
	if err != nil {
		return Snapshot{}, fmt.Errorf("introspect schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := Snapshot{}
	index := map[string]int{}
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return Snapshot{}, fmt.Errorf("scan schema row: %w", err)
		}
		if isSystemTable(tableName) {
			continue
		}
		pos, ok := index[tableName]
		if !ok {
			pos = len(snapshot.Tables)
			index[tableName] = pos
			snapshot.Tables = append(snapshot.Tables, Table{Name: tableName})
		}
		snapshot.Tables[pos].Columns = append(snapshot.Tables[pos].Columns, Column{
			Name: columnName,
			Type: dataType,
		})
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate schema rows: %w", err)
	}
	return snapshot, nil
}

func isSystemTable(name string) bool {
	lowered := strings.ToLower(name)
	for _, prefix := range systemPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}
