package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/convert"
	"github.com/angas/tariffsaver-go/slice"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

type priceSlotResponse struct {
	Start      time.Time            `json:"start_utc"`
	Dyn        types.ComponentMap   `json:"dyn"`
	Base       types.ComponentMap   `json:"base"`
	Integrated maybe.Maybe[float64] `json:"integrated"`
}

type pricesResponse struct {
	SlotCount  int                  `json:"slot_count"`
	PriceNow   maybe.Maybe[float64] `json:"price_now_chf_per_kwh"`
	PriceAllIn maybe.Maybe[float64] `json:"price_allin_now_chf_per_kwh"`
	PriceNext  maybe.Maybe[float64] `json:"price_next_chf_per_kwh"`
	Stats      DailyStats           `json:"stats"`
	Slots      []priceSlotResponse  `json:"slots"`
}

// NewPricesHandler serves the stored price curve together with the derived
// daily statistics and the current/next headline prices.
func NewPricesHandler(logger *slog.Logger, store *accounting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		curve := store.PriceCurve()

		resp := pricesResponse{
			SlotCount: len(curve),
			Stats:     ComputeDailyStats(curve, now),
			Slots: slice.Map(curve, func(slot types.PriceSlot) priceSlotResponse {
				return priceSlotResponse{
					Start:      slot.Start,
					Dyn:        slot.Dynamic,
					Base:       slot.Baseline,
					Integrated: slot.Integrated,
				}
			}),
		}

		current := slots.Floor(now)
		for _, slot := range curve {
			switch {
			case slot.Start.Equal(current):
				if p := headlinePrice(slot.Dynamic); p > 0 {
					resp.PriceNow = maybe.Some(p)
				}
				if allIn := slot.Dynamic.Sum(types.ImportAllIn...); allIn > 0 {
					resp.PriceAllIn = maybe.Some(convert.RoundFloat64(allIn, 6))
				}
			case slot.Start.After(now) && !resp.PriceNext.IsValid():
				if p := headlinePrice(slot.Dynamic); p > 0 {
					resp.PriceNext = maybe.Some(p)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("handling prices request", slog.Any("error", err))
		}
	}
}
