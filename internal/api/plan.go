package api

import (
	"encoding/json"
	"net/http"

	"github.com/querydeck/querydeck/internal/auth"
	"github.com/querydeck/querydeck/internal/planner"
)

type planRequestBody struct {
	Question     string               `json:"question"`
	Language     string               `json:"language"`
	Availability planner.Availability `json:"availability"`
}

type planResponseBody struct {
	Summary   string            `json:"summary"`
	Caveats   string            `json:"caveats,omitempty"`
	SQL       string            `json:"sql"`
	ChartSpec planner.ChartSpec `json:"chartSpec"`
}

func handlePlan(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, auth.RoleAnalyst) {
		return
	}
	if deps.Planner == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "planner is not configured", "")
		return
	}

	var body planRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "input", "invalid request body", err.Error())
		return
	}

	plan, err := deps.Planner.Plan(r.Context(), planner.PlanRequest{
		Question:     body.Question,
		Language:     body.Language,
		Availability: body.Availability,
	})
	if err != nil {
		writePlannerError(r.Context(), w, deps.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, planResponseBody{
		Summary:   plan.Summary,
		Caveats:   plan.Caveats,
		SQL:       plan.SQL,
		ChartSpec: plan.ChartSpec,
	})
}

// requireRole passes requests through when no identity is attached,
// which is the auth-disabled dev path. With auth enabled the
// middleware always attaches one.
func requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return true
	}
	if identity.HasRole(role) {
		return true
	}
	writeError(r.Context(), w, http.StatusForbidden, "forbidden", "missing required role "+role, "")
	return false
}
