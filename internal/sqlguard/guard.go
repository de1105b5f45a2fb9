// Package sqlguard enforces the read-only, single-statement,
// bounded-result contract on model-proposed SQL. The checks are
// deliberately lexical, not a parser: the producer is careless rather
// than adversarial, and the warehouse role is read-only regardless.
package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

// Keywords that disqualify a statement outright, matched as whole
// words case-insensitively.
var bannedKeywords = []string{
	"insert", "update", "delete", "merge", "alter", "create", "drop",
	"truncate", "grant", "revoke", "call", "do", "copy", "vacuum", "analyze",
}

var (
	lineCommentRe   = regexp.MustCompile(`--[^\n]*`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	limitClauseRe   = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)
	bannedKeywordRe = regexp.MustCompile(`(?i)\b(` + strings.Join(bannedKeywords, "|") + `)\b`)
)

// IsSelectOnly reports whether the text is a single read-only SELECT:
// after comment stripping it must start with SELECT, contain no
// statement separator, and contain no mutating keyword.
func IsSelectOnly(text string) bool {
	cleaned := strings.TrimSpace(stripComments(text))
	if cleaned == "" {
		return false
	}
	if !hasSelectPrefix(cleaned) {
		return false
	}
	if strings.Contains(cleaned, ";") {
		return false
	}
	return !bannedKeywordRe.MatchString(cleaned)
}

// Guard normalizes query text before validation: comments stripped,
// whitespace trimmed, and anything past the first statement separator
// discarded so a multi-statement completion degrades to its first
// statement instead of slipping through.
func Guard(text string) string {
	cleaned := strings.TrimSpace(stripComments(text))
	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

// ForceLimit ensures the statement carries a row-limit clause bounded
// by max. An existing clause at or under max is left alone; a larger
// one is rewritten down; a missing one is appended. Idempotent.
func ForceLimit(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed
	}

	match := limitClauseRe.FindStringSubmatchIndex(trimmed)
	if match == nil {
		return fmt.Sprintf("%s LIMIT %d", trimmed, max)
	}

	var bound int
	_, _ = fmt.Sscanf(trimmed[match[2]:match[3]], "%d", &bound)
	if bound <= max {
		return trimmed
	}
	return trimmed[:match[2]] + fmt.Sprintf("%d", max) + trimmed[match[3]:]
}

func stripComments(text string) string {
	withoutBlocks := blockCommentRe.ReplaceAllString(text, " ")
	return lineCommentRe.ReplaceAllString(withoutBlocks, " ")
}

func hasSelectPrefix(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	return strings.EqualFold(fields[0], "select")
}
