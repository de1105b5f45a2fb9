package schema

import (
	"context"
	"strings"
)

// Column is one introspected warehouse column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Table is one user-queryable table with its columns in the
// warehouse's natural ordering.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Snapshot is a point-in-time view of the queryable schema. Tables
// keep introspection order so prompt rendering is stable.
type Snapshot struct {
	Tables []Table `json:"tables"`
}

func (s Snapshot) HasTable(name string) bool {
	for _, table := range s.Tables {
		if strings.EqualFold(table.Name, name) {
			return true
		}
	}
	return false
}

// Restrict returns a snapshot containing only the named tables,
// preserving snapshot order. Unknown hints are ignored; an empty hint
// list returns the snapshot unchanged.
func (s Snapshot) Restrict(hints []string) Snapshot {
	if len(hints) == 0 {
		return s
	}
	wanted := make(map[string]bool, len(hints))
	for _, hint := range hints {
		wanted[strings.ToLower(strings.TrimSpace(hint))] = true
	}
	restricted := Snapshot{}
	for _, table := range s.Tables {
		if wanted[strings.ToLower(table.Name)] {
			restricted.Tables = append(restricted.Tables, table)
		}
	}
	if len(restricted.Tables) == 0 {
		return s
	}
	return restricted
}

// PromptText renders the snapshot for prompt embedding, one table per
// line as name(col1, col2, ...).
func (s Snapshot) PromptText() string {
	var sb strings.Builder
	for _, table := range s.Tables {
		sb.WriteString(table.Name)
		sb.WriteString("(")
		for i, column := range table.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(column.Name)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

// Provider supplies the current schema snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}
