package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/camden-git/labelsysbackend/database"
)

const defaultStatsLimit = 30

type StatsHandler struct {
	DB *sql.DB
}

func NewStatsHandler(db *sql.DB) *StatsHandler {
	return &StatsHandler{DB: db}
}

type WorkStatsResponse struct {
	Totals database.WorkTotals     `json:"totals"`
	Daily  []database.DailyWorkRow `json:"daily"`
}

// MyWorkStatistics reports the caller's labeling throughput: all-time totals
// plus the most recent per-dataset daily rows
func (sh *StatsHandler) MyWorkStatistics(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	limit := uint64(defaultStatsLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.ParseUint(limitStr, 10, 32)
		if err != nil || parsed == 0 {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid limit")
			return
		}
		limit = parsed
	}

	daily, err := database.ListUserWorkStatistics(sh.DB, user.ID, limit)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if daily == nil {
		daily = []database.DailyWorkRow{}
	}

	totals, err := database.GetUserWorkTotals(sh.DB, user.ID)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, WorkStatsResponse{Totals: totals, Daily: daily})
}
