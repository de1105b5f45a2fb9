// Package planner turns a natural-language question into a guarded,
// validated SQL plan and optionally executes it. It owns the pipeline
// prompt -> completion -> extraction -> guard -> validation shared by
// the plan-only and plan-and-execute entry points.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydeck/querydeck/internal/llm"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/query"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/sqlguard"
)

// ChartSpec pairs a result set with a renderable chart shape. X and Y
// name result columns; the Ask path rewrites them against the actual
// field list after execution.
type ChartSpec struct {
	Type   string            `json:"type,omitempty"`
	X      string            `json:"x"`
	Y      []string          `json:"y"`
	Title  string            `json:"title,omitempty"`
	Stack  bool              `json:"stack,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Plan is the structured output of one planning cycle, prior to any
// execution.
type Plan struct {
	Summary   string    `json:"summary"`
	Caveats   string    `json:"caveats,omitempty"`
	SQL       string    `json:"sql"`
	ChartSpec ChartSpec `json:"chartSpec"`
}

// DatasetAvailability lists the calendar periods that actually hold
// rows for one logical dataset.
type DatasetAvailability struct {
	Dataset string   `json:"dataset"`
	Periods []string `json:"periods"`
}

// Availability is caller-supplied, request-scoped metadata that keeps
// the proposed query honest about data coverage.
type Availability struct {
	Datasets []DatasetAvailability `json:"datasets,omitempty"`
	Notes    string                `json:"notes,omitempty"`
}

type PlanRequest struct {
	Question     string
	Language     string
	Availability Availability
}

type AskRequest struct {
	Question     string
	Language     string
	Tables       []string
	Availability Availability
}

type AskResult struct {
	Explanation string           `json:"explanation"`
	AskBack     string           `json:"askBack,omitempty"`
	SQL         string           `json:"sql"`
	Fields      []string         `json:"fields"`
	Rows        []map[string]any `json:"rows"`
	ChartSpec   ChartSpec        `json:"chartSpec"`
}

// Planner wires the pipeline stages together. All collaborators are
// injected; the planner itself holds no mutable state.
type Planner struct {
	Schema      schema.Provider
	Completions llm.Client
	Engine      query.Engine
	Temperature float64
	RowLimit    int
	Logger      *slog.Logger
}

// Plan runs the planning pipeline without executing the query.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	plan, err := p.plan(ctx, req.Question, req.Language, req.Availability, nil)
	if err != nil {
		observability.IncrementPlanRequest("plan", "error")
		return Plan{}, err
	}
	observability.IncrementPlanRequest("plan", "ok")
	return plan, nil
}

// Ask runs the planning pipeline and executes the guarded query,
// resolving the chart descriptor against the columns that actually
// came back.
func (p *Planner) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	if p.Engine == nil {
		return AskResult{}, newConfigurationError("query engine is not configured")
	}

	plan, err := p.plan(ctx, req.Question, req.Language, req.Availability, req.Tables)
	if err != nil {
		observability.IncrementPlanRequest("ask", "error")
		return AskResult{}, err
	}

	result, err := p.Engine.Execute(ctx, plan.SQL)
	if err != nil {
		observability.IncrementPlanRequest("ask", "error")
		return AskResult{}, newExecutionError(plan.SQL, err)
	}
	observability.IncrementPlanRequest("ask", "ok")
	observability.ObserveExecutedRows(len(result.Rows))

	fields := result.Columns
	if len(result.Rows) == 0 {
		fields = []string{}
	}

	return AskResult{
		Explanation: plan.Summary,
		AskBack:     plan.Caveats,
		SQL:         plan.SQL,
		Fields:      fields,
		Rows:        result.Rows,
		ChartSpec:   resolveChartSpec(plan.ChartSpec, fields),
	}, nil
}

// plan is the shared pipeline: received -> schema-ready -> prompted ->
// completion-received -> plan-extracted -> sql-guarded -> sql-validated.
// No stage is retried; any failure is terminal for the request.
func (p *Planner) plan(ctx context.Context, question, language string, availability Availability, tableHints []string) (Plan, error) {
	if strings.TrimSpace(question) == "" {
		return Plan{}, newInputError("question is required")
	}
	if p.Schema == nil || p.Completions == nil {
		return Plan{}, newConfigurationError("planner dependencies are not configured")
	}

	snapshot, err := p.Schema.Snapshot(ctx)
	if err != nil {
		return Plan{}, newConfigurationError(fmt.Sprintf("load schema snapshot: %v", err))
	}
	promptSnapshot := snapshot.Restrict(tableHints)

	prompt := BuildPrompt(question, language, promptSnapshot.PromptText(), availability)
	completion, err := p.Completions.Complete(ctx, llm.Request{
		System:      prompt.System,
		User:        prompt.User,
		Temperature: p.Temperature,
		JSONOnly:    true,
	})
	if err != nil {
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			return Plan{}, newUpstreamError(upstream)
		}
		return Plan{}, newUpstreamTimeoutError(err)
	}

	plan, err := ExtractPlan(completion)
	if err != nil {
		return Plan{}, err
	}
	if plan.SQL == "" {
		return Plan{}, newUnanswerableError(plan.Summary)
	}

	guarded := sqlguard.Guard(plan.SQL)
	guarded = sqlguard.ForceLimit(guarded, p.rowLimit())
	plan.SQL = guarded

	if err := ValidateSQL(guarded, snapshot); err != nil {
		var unsafe *Error
		if errors.As(err, &unsafe) {
			observability.IncrementGuardRejection(rejectionLabel(unsafe.Detail))
		}
		return Plan{}, err
	}

	if p.Logger != nil {
		p.Logger.DebugContext(ctx, "plan ready",
			slog.String("sql", plan.SQL),
			slog.String("chart", plan.ChartSpec.Type),
		)
	}
	return plan, nil
}

// rejectionLabel keeps the metric label set bounded; the full reason
// string carries identifiers and belongs in the error, not a label.
func rejectionLabel(detail string) string {
	if strings.HasPrefix(detail, "unknown table") {
		return "unknown_table"
	}
	return "unsafe_statement"
}

func (p *Planner) rowLimit() int {
	if p.RowLimit > 0 {
		return p.RowLimit
	}
	return 1000
}

// resolveChartSpec reconciles model-chosen axis names with the columns
// the query actually produced: an unknown x falls back to the first
// field, unknown y entries are dropped, and an empty y defaults to the
// two columns after x.
func resolveChartSpec(spec ChartSpec, fields []string) ChartSpec {
	if len(fields) == 0 {
		return spec
	}

	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field] = true
	}

	if !known[spec.X] {
		spec.X = fields[0]
	}

	resolvedY := make([]string, 0, len(spec.Y))
	for _, name := range spec.Y {
		if known[name] {
			resolvedY = append(resolvedY, name)
		}
	}
	if len(resolvedY) == 0 {
		for i := 1; i < len(fields) && i <= 2; i++ {
			resolvedY = append(resolvedY, fields[i])
		}
	}
	spec.Y = resolvedY
	return spec
}
