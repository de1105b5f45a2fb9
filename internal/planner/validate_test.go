package planner

import (
	"strings"
	"testing"

	"github.com/querydeck/querydeck/internal/schema"
)

func testSnapshot() schema.Snapshot {
	return schema.Snapshot{Tables: []schema.Table{
		{Name: "sales", Columns: []schema.Column{{Name: "region"}, {Name: "amount"}}},
		{Name: "customers", Columns: []schema.Column{{Name: "id"}, {Name: "name"}}},
	}}
}

func TestValidateSQLKnownTables(t *testing.T) {
	sql := "SELECT s.region, c.name FROM sales s JOIN customers c ON c.id = s.customer_id"
	if err := ValidateSQL(sql, testSnapshot()); err != nil {
		t.Fatalf("ValidateSQL returned error: %v", err)
	}
}

func TestValidateSQLUnknownTable(t *testing.T) {
	err := ValidateSQL("SELECT * FROM ghost_table", testSnapshot())
	assertKind(t, err, KindUnsafeQuery)
	if !strings.Contains(err.Error(), "ghost_table") {
		t.Fatalf("error should name the unknown table, got %v", err)
	}
}

func TestValidateSQLRejectsDrop(t *testing.T) {
	err := ValidateSQL("DROP TABLE sales", testSnapshot())
	assertKind(t, err, KindUnsafeQuery)
}

func TestValidateSQLRejectsMultipleStatements(t *testing.T) {
	err := ValidateSQL("SELECT 1; SELECT 2", testSnapshot())
	assertKind(t, err, KindUnsafeQuery)
	if !strings.Contains(err.Error(), "multiple statements") {
		t.Fatalf("unexpected reason: %v", err)
	}
}

func TestValidateSQLQualifiedAndQuotedTable(t *testing.T) {
	sql := `SELECT region FROM analytics."sales"`
	if err := ValidateSQL(sql, testSnapshot()); err != nil {
		t.Fatalf("ValidateSQL returned error: %v", err)
	}
}

func TestValidateSQLCaseInsensitiveTableMatch(t *testing.T) {
	if err := ValidateSQL("SELECT * FROM SALES", testSnapshot()); err != nil {
		t.Fatalf("ValidateSQL returned error: %v", err)
	}
}

func TestValidateSQLDerivedTable(t *testing.T) {
	sql := "SELECT * FROM (SELECT region FROM sales) AS r"
	if err := ValidateSQL(sql, testSnapshot()); err != nil {
		t.Fatalf("ValidateSQL returned error: %v", err)
	}
}
