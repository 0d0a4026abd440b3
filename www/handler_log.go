package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/angas/tariffsaver-go/database"
)

// NewLogHandler serves pages of the persisted log, newest first.
func NewLogHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}
		pageSize := 25
		if ps, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && ps > 0 {
			pageSize = ps
		}

		entries, err := db.GetLogEntries(r.Context(), slog.LevelDebug, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(struct {
			Page     int                    `json:"page"`
			PageSize int                    `json:"page_size"`
			Entries  []database.LogEntryRow `json:"entries"`
		}{page, pageSize, entries}); err != nil {
			logger.Error("handling log request", slog.Any("error", err))
		}
	}
}
