package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

type bookedSlotResponse struct {
	Start          time.Time          `json:"start_utc"`
	ConsumptionKWH float64            `json:"consumption_kwh"`
	Status         accounting.Status  `json:"status"`
	Dyn            types.ComponentMap `json:"dyn"`
	Base           types.ComponentMap `json:"base"`
	Sav            types.ComponentMap `json:"sav"`
}

type bookedResponse struct {
	Since time.Time            `json:"since_utc"`
	Count int                  `json:"count"`
	Slots []bookedSlotResponse `json:"slots"`
}

// NewBookedHandler serves the booked slot ledger from a given instant onward.
// The since query parameter takes an RFC3339 timestamp; when absent the
// listing starts at the beginning of the current civil day. This is the pull
// counterpart to the slots_booked websocket event, which only announces a
// count.
func NewBookedHandler(logger *slog.Logger, store *accounting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, _ := slots.PeriodBounds(slots.PeriodToday, time.Now())
		if raw := r.URL.Query().Get("since"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
				return
			}
			since = t
		}

		booked := store.BookedSince(since)
		resp := bookedResponse{
			Since: since.UTC(),
			Count: len(booked),
			Slots: make([]bookedSlotResponse, 0, len(booked)),
		}
		for _, b := range booked {
			resp.Slots = append(resp.Slots, bookedSlotResponse{
				Start:          b.Start,
				ConsumptionKWH: b.ConsumptionKWH,
				Status:         b.Status,
				Dyn:            b.DynamicCost,
				Base:           b.BaselineCost,
				Sav:            b.Savings,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("handling booked request", slog.Any("error", err))
		}
	}
}
