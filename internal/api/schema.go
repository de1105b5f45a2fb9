package api

import (
	"net/http"
	"time"

	"github.com/querydeck/querydeck/internal/auth"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !requireRole(w, r, auth.RoleAnalyst) {
		return
	}
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "schema provider is not configured", "")
		return
	}

	snapshot, err := deps.Schema.Snapshot(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "configuration", "load schema snapshot failed", err.Error())
		return
	}

	body := map[string]any{
		"tables": snapshot.Tables,
		"prompt": snapshot.PromptText(),
	}
	if aged, ok := deps.Schema.(interface{ Age() (time.Duration, bool) }); ok {
		if age, known := aged.Age(); known {
			body["cache_age_seconds"] = int(age.Seconds())
		}
	}
	writeJSON(w, http.StatusOK, body)
}
