package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/types/maybe"
)

type statusResponse struct {
	Version        string                 `json:"version"`
	SampleCount    int                    `json:"sample_count"`
	PriceCount     int                    `json:"price_slot_count"`
	BookedCount    int                    `json:"booked_slot_count"`
	LastAPISuccess maybe.Maybe[time.Time] `json:"last_api_success_utc"`
	Dirty          bool                   `json:"dirty"`
}

func NewStatusHandler(logger *slog.Logger, store *accounting.Store, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Version:     version,
			SampleCount: store.SampleCount(),
			PriceCount:  store.PriceCount(),
			BookedCount: store.BookedCount(),
			Dirty:       store.Dirty(),
		}
		if t := store.LastFetchSuccess(); !t.IsZero() {
			resp.LastAPISuccess = maybe.Some(t.UTC())
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("handling status request", slog.Any("error", err))
		}
	}
}
