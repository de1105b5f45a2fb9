package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/sqlguard"
)

// tableRefRe captures the identifier that follows FROM or JOIN. The
// character class excludes "(" so derived tables do not match; their
// inner FROM clauses are scanned on their own.
var tableRefRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z0-9_."]+)`)

// ValidateSQL rejects a statement that is not a single read-only
// SELECT or that references a table outside the snapshot. The table
// scan is lexical: every FROM/JOIN target is reduced to its final
// identifier segment and checked case-insensitively against the
// snapshot.
func ValidateSQL(sqlText string, snapshot schema.Snapshot) error {
	if !sqlguard.IsSelectOnly(sqlText) {
		return newUnsafeQueryError(rejectReason(sqlText))
	}

	for _, match := range tableRefRe.FindAllStringSubmatch(sqlText, -1) {
		table := normalizeTableRef(match[1])
		if table == "" {
			continue
		}
		if !snapshot.HasTable(table) {
			return newUnsafeQueryError(fmt.Sprintf("unknown table %q", table))
		}
	}
	return nil
}

func rejectReason(sqlText string) string {
	cleaned := strings.TrimSpace(sqlText)
	switch {
	case cleaned == "":
		return "empty statement"
	case strings.Contains(cleaned, ";"):
		return "multiple statements"
	default:
		fields := strings.Fields(cleaned)
		if len(fields) > 0 && !strings.EqualFold(fields[0], "select") {
			return fmt.Sprintf("statement starts with %s", strings.ToUpper(fields[0]))
		}
		return "statement contains a mutating keyword"
	}
}

// normalizeTableRef strips surrounding quotes and schema qualifiers:
// `analytics."monthly_sales"` reduces to monthly_sales.
func normalizeTableRef(ref string) string {
	trimmed := strings.Trim(ref, `".`)
	if trimmed == "" {
		return ""
	}
	segments := strings.Split(trimmed, ".")
	last := segments[len(segments)-1]
	return strings.Trim(last, `"`)
}
