package www

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

type breakdownResponse struct {
	Period     slots.Period       `json:"period"`
	Dyn        types.ComponentMap `json:"dyn"`
	Base       types.ComponentMap `json:"base"`
	Sav        types.ComponentMap `json:"sav"`
	DynAllIn   float64            `json:"dyn_allin"`
	BaseAllIn  float64            `json:"base_allin"`
	SavAllIn   float64            `json:"sav_allin"`
	Components []types.Component  `json:"allin_components"`
}

// NewBreakdownHandler serves the per-component cost/savings rollup for one of
// the four civil periods. The all-in totals sum the import components only,
// so feed-in credits never inflate an import cost figure.
func NewBreakdownHandler(logger *slog.Logger, store *accounting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := slots.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		bd := store.PeriodBreakdown(period)
		resp := breakdownResponse{
			Period:     period,
			Dyn:        bd.Dyn,
			Base:       bd.Base,
			Sav:        bd.Sav,
			DynAllIn:   bd.Dyn.Sum(types.ImportAllIn...),
			BaseAllIn:  bd.Base.Sum(types.ImportAllIn...),
			SavAllIn:   bd.Sav.Sum(types.ImportAllIn...),
			Components: types.ImportAllIn,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("handling breakdown request", slog.Any("error", err))
		}
	}
}
