package api

import (
	"encoding/json"
	"net/http"

	"github.com/querydeck/querydeck/internal/auth"
	"github.com/querydeck/querydeck/internal/planner"
)

type askRequestBody struct {
	Question     string               `json:"question"`
	Language     string               `json:"language"`
	Tables       []string             `json:"tables"`
	Availability planner.Availability `json:"availability"`
}

type askResponseBody struct {
	Explanation string            `json:"explanation"`
	AskBack     *string           `json:"askBack"`
	SQL         string            `json:"sql"`
	Fields      []string          `json:"fields"`
	Rows        []map[string]any  `json:"rows"`
	ChartSpec   planner.ChartSpec `json:"chartSpec"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, auth.RoleAnalyst) {
		return
	}
	if deps.Planner == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "planner is not configured", "")
		return
	}

	var body askRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "input", "invalid request body", err.Error())
		return
	}

	result, err := deps.Planner.Ask(r.Context(), planner.AskRequest{
		Question:     body.Question,
		Language:     body.Language,
		Tables:       body.Tables,
		Availability: body.Availability,
	})
	if err != nil {
		writePlannerError(r.Context(), w, deps.Logger, err)
		return
	}

	var askBack *string
	if result.AskBack != "" {
		askBack = &result.AskBack
	}
	if result.Rows == nil {
		result.Rows = []map[string]any{}
	}

	writeJSON(w, http.StatusOK, askResponseBody{
		Explanation: result.Explanation,
		AskBack:     askBack,
		SQL:         result.SQL,
		Fields:      result.Fields,
		Rows:        result.Rows,
		ChartSpec:   result.ChartSpec,
	})
}
