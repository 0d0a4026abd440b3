package accounting

import (
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

// Breakdown is the per-component rollup of booked costs over one civil
// period: dynamic cost, baseline cost and savings.
type Breakdown struct {
	Dyn  types.ComponentMap `json:"dyn"`
	Base types.ComponentMap `json:"base"`
	Sav  types.ComponentMap `json:"sav"`
}

// PeriodBreakdown aggregates booked slots over the civil period containing
// the current time. The four periods are pure re-parameterizations of the
// same rollup.
func (s *Store) PeriodBreakdown(period slots.Period) Breakdown {
	return s.PeriodBreakdownAt(period, time.Now())
}

// PeriodBreakdownAt does the same for the period containing now. Period
// boundaries come from local civil time; the membership comparison happens in
// instant space against each slot's UTC start. Boundaries are half-open, so a
// slot starting exactly at local midnight belongs to the new day.
func (s *Store) PeriodBreakdownAt(period slots.Period, now time.Time) Breakdown {
	start, end := slots.PeriodBounds(period, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := Breakdown{
		Dyn:  make(types.ComponentMap),
		Base: make(types.ComponentMap),
		Sav:  make(types.ComponentMap),
	}
	for _, b := range s.booked {
		if b.Start.Before(start) || !b.Start.Before(end) {
			continue
		}
		addComponents(out.Dyn, b.DynamicCost)
		addComponents(out.Base, b.BaselineCost)
		addComponents(out.Sav, b.Savings)
	}
	return out
}

func addComponents(dst, src types.ComponentMap) {
	for comp, v := range src {
		dst[comp] += v
	}
}
