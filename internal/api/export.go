package api

import (
	"encoding/json"
	"net/http"

	"github.com/querydeck/querydeck/internal/auth"
	"github.com/querydeck/querydeck/internal/export"
	"github.com/querydeck/querydeck/internal/planner"
	"github.com/querydeck/querydeck/internal/query"
)

type exportRequestBody struct {
	Question     string               `json:"question"`
	Language     string               `json:"language"`
	Tables       []string             `json:"tables"`
	Availability planner.Availability `json:"availability"`
}

type exportResponseBody struct {
	Explanation string         `json:"explanation"`
	SQL         string         `json:"sql"`
	Archive     export.Archive `json:"archive"`
}

// handleExport runs the full ask pipeline and archives the executed
// result to object storage instead of returning the rows inline.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, auth.RoleExporter) {
		return
	}
	if deps.Planner == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "planner is not configured", "")
		return
	}
	if deps.Archiver == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "configuration", "export is not enabled", "")
		return
	}

	var body exportRequestBody
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

	if len(result.Fields) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "input", "query returned no rows to export", result.SQL)
		return
	}

	archive, err := deps.Archiver.Archive(r.Context(), export.Request{
		Question: body.Question,
		SQL:      result.SQL,
		Result: query.Result{
			Columns: result.Fields,
			Rows:    result.Rows,
		},
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "internal", "archive export failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, exportResponseBody{
		Explanation: result.Explanation,
		SQL:         result.SQL,
		Archive:     archive,
	})
}
