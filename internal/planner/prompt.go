package planner

import (
	"fmt"
	"strings"
)

// Prompt is the pair of messages sent to the completion service. Both
// halves are pure functions of their inputs so the same question over
// the same snapshot always produces byte-identical prompts.
type Prompt struct {
	System string
	User   string
}

const systemPreambleFormat = `You are a careful business-analytics SQL planner. You translate questions about business data into a single read-only SQL query over the tables you are given, and you respond with JSON only.

Rules:
1. Use only the tables and columns listed in the schema. Never invent names.
2. Produce exactly one SELECT statement. No INSERT, UPDATE, DELETE, DDL, or multiple statements.
3. Prefer aggregated results with clear column aliases suitable for charting.
4. Derive concepts the schema does not store directly, such as new customers or repeat buyers, by grouping and filtering on the columns that do exist.
5. The chartSpec x value and every y entry must exactly match a column alias produced by the query.
6. Keep the summary and caveats to one or two short sentences each.
7. When the data availability section shows the requested period is missing or partial, still answer with the closest available data and say so in the caveats.
8. If the question cannot be answered from the schema, return an empty "sql" and explain why in the summary.
9. Write the summary, caveats, chart title, and labels in %s.

Respond with a single JSON object of this exact shape and nothing else:
{"summary": string, "caveats": string, "sql": string, "chartSpec": {"type": "line"|"bar"|"area"|"pie", "x": string, "y": [string], "title": string, "stack": bool, "labels": {string: string}}}`

// BuildPrompt assembles the system and user messages for one planning
// request. The language steers prose fields only; SQL identifiers come
// from the schema text verbatim, and the instructions themselves stay
// in English.
func BuildPrompt(question, language, schemaText string, availability Availability) Prompt {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "English"
	}

	var user strings.Builder
	user.WriteString("Schema (table(column, ...)):\n")
	if strings.TrimSpace(schemaText) == "" {
		user.WriteString("(no tables available)\n")
	} else {
		user.WriteString(schemaText)
		if !strings.HasSuffix(schemaText, "\n") {
			user.WriteString("\n")
		}
	}

	user.WriteString("\nData availability:\n")
	user.WriteString(renderAvailability(availability))

	fmt.Fprintf(&user, "\nQuestion: %s\n", strings.TrimSpace(question))

	return Prompt{
		System: fmt.Sprintf(systemPreambleFormat, lang),
		User:   user.String(),
	}
}

func renderAvailability(availability Availability) string {
	var b strings.Builder
	for _, dataset := range availability.Datasets {
		periods := "not available"
		if len(dataset.Periods) > 0 {
			periods = strings.Join(dataset.Periods, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s\n", dataset.Dataset, periods)
	}
	if notes := strings.TrimSpace(availability.Notes); notes != "" {
		fmt.Fprintf(&b, "- note: %s\n", notes)
	}
	if b.Len() == 0 {
		return "(not provided)\n"
	}
	return b.String()
}
