package planner

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var chartTypes = map[string]bool{
	"line": true,
	"bar":  true,
	"area": true,
	"pie":  true,
}

// ExtractPlan parses a completion into a Plan. Models wrap JSON in
// markdown fences often enough that the extractor looks inside the
// first fenced block before falling back to the raw text. Anything
// that fails to decode is a plan-parse failure; an empty sql field is
// a valid shape (the model declining the question) and is judged by
// the caller.
func ExtractPlan(completion string) (Plan, error) {
	candidate := strings.TrimSpace(completion)
	if match := fencedBlockRe.FindStringSubmatch(candidate); match != nil {
		candidate = strings.TrimSpace(match[1])
	}
	if candidate == "" {
		return Plan{}, newPlanParseError("empty completion", nil)
	}

	var raw struct {
		Summary   string          `json:"summary"`
		Caveats   json.RawMessage `json:"caveats"`
		SQL       string          `json:"sql"`
		ChartSpec json.RawMessage `json:"chartSpec"`
	}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return Plan{}, newPlanParseError("completion is not valid JSON", err)
	}

	return Plan{
		Summary:   strings.TrimSpace(raw.Summary),
		Caveats:   decodeCaveats(raw.Caveats),
		SQL:       strings.TrimSpace(raw.SQL),
		ChartSpec: normalizeChartSpec(raw.ChartSpec),
	}, nil
}

// decodeCaveats accepts either a string or an array of strings; models
// alternate between the two no matter what the contract says.
func decodeCaveats(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for i := range many {
			many[i] = strings.TrimSpace(many[i])
		}
		return strings.Join(many, " ")
	}
	return ""
}

// normalizeChartSpec coerces whatever shape came back into a valid
// descriptor: unknown chart types are dropped, y tolerates a bare
// string, and a malformed block degrades to the zero value rather than
// failing the plan.
func normalizeChartSpec(raw json.RawMessage) ChartSpec {
	if len(raw) == 0 {
		return ChartSpec{}
	}

	var decoded struct {
		Type   string            `json:"type"`
		X      string            `json:"x"`
		Y      json.RawMessage   `json:"y"`
		Title  string            `json:"title"`
		Stack  bool              `json:"stack"`
		Labels map[string]string `json:"labels"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ChartSpec{}
	}

	spec := ChartSpec{
		Type:   strings.ToLower(strings.TrimSpace(decoded.Type)),
		X:      strings.TrimSpace(decoded.X),
		Title:  strings.TrimSpace(decoded.Title),
		Stack:  decoded.Stack,
		Labels: decoded.Labels,
	}
	if !chartTypes[spec.Type] {
		spec.Type = ""
	}

	if len(decoded.Y) > 0 {
		var many []string
		if err := json.Unmarshal(decoded.Y, &many); err == nil {
			for _, name := range many {
				if trimmed := strings.TrimSpace(name); trimmed != "" {
					spec.Y = append(spec.Y, trimmed)
				}
			}
		} else {
			var single string
			if err := json.Unmarshal(decoded.Y, &single); err == nil {
				if trimmed := strings.TrimSpace(single); trimmed != "" {
					spec.Y = []string{trimmed}
				}
			}
		}
	}
	return spec
}
