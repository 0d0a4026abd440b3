package www

import (
	"math"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

// Grade thresholds in percent deviation from the daily average price.
// dev <= t1 grades 1 (cheapest) and dev >= t4 grades 5 (most expensive).
var defaultGradeThresholds = [4]float64{-10.0, -5.0, 5.0, 10.0}

type SlotStat struct {
	Start         time.Time            `json:"start_utc"`
	Price         float64              `json:"price_chf_per_kwh"`
	Baseline      maybe.Maybe[float64] `json:"baseline_chf_per_kwh"`
	DevVsAvg      maybe.Maybe[float64] `json:"dev_vs_avg_percent"`
	DevVsBaseline maybe.Maybe[float64] `json:"dev_vs_baseline_percent"`
	Grade         maybe.Maybe[int]     `json:"grade"`
}

type DailyStats struct {
	CalculatedAt time.Time            `json:"calculated_at_utc"`
	AvgDynamic   maybe.Maybe[float64] `json:"avg_dynamic_chf_per_kwh"`
	AvgBaseline  maybe.Maybe[float64] `json:"avg_baseline_chf_per_kwh"`
	Slots        []SlotStat           `json:"slots"`
}

// ComputeDailyStats derives per-slot deviations and a 1-5 price grade from a
// sorted price curve. Only slots within the civil day containing now count:
// the curve can span several days, and yesterday's or tomorrow's prices must
// not drag today's average. Slots without a positive headline price are
// skipped, and the baseline average only covers slots where both curves have
// a price so the two averages stay comparable.
func ComputeDailyStats(curve []types.PriceSlot, now time.Time) DailyStats {
	stats := DailyStats{CalculatedAt: now.UTC()}

	dayStart, dayEnd := slots.PeriodBounds(slots.PeriodToday, now)

	type pricedSlot struct {
		start time.Time
		dyn   float64
		base  float64
	}

	priced := make([]pricedSlot, 0, len(curve))
	for _, slot := range curve {
		if slot.Start.Before(dayStart) || !slot.Start.Before(dayEnd) {
			continue
		}
		dyn := headlinePrice(slot.Dynamic)
		if dyn <= 0 {
			continue
		}
		priced = append(priced, pricedSlot{start: slot.Start, dyn: dyn, base: headlinePrice(slot.Baseline)})
	}
	if len(priced) == 0 {
		return stats
	}

	var dynSum, baseSum float64
	baseCount := 0
	for _, p := range priced {
		dynSum += p.dyn
		if p.base > 0 {
			baseSum += p.base
			baseCount++
		}
	}

	avgDyn := dynSum / float64(len(priced))
	stats.AvgDynamic = maybe.Some(avgDyn)
	if baseCount > 0 {
		stats.AvgBaseline = maybe.Some(baseSum / float64(baseCount))
	}

	stats.Slots = make([]SlotStat, 0, len(priced))
	for _, p := range priced {
		st := SlotStat{Start: p.start, Price: p.dyn}
		if p.base > 0 {
			st.Baseline = maybe.Some(p.base)
			st.DevVsBaseline = maybe.Some((p.dyn/p.base - 1.0) * 100.0)
		}
		if avgDyn > 0 {
			dev := (p.dyn/avgDyn - 1.0) * 100.0
			st.DevVsAvg = maybe.Some(dev)
			st.Grade = maybe.Some(gradeFor(dev, defaultGradeThresholds))
		}
		stats.Slots = append(stats.Slots, st)
	}
	return stats
}

func gradeFor(devPercent float64, t [4]float64) int {
	switch {
	case devPercent <= t[0]:
		return 1
	case devPercent <= t[1]:
		return 2
	case devPercent < t[2]:
		return 3
	case devPercent < t[3]:
		return 4
	default:
		return 5
	}
}

// headlinePrice is the electricity component when present, otherwise the
// all-in sum of the import components. Zero when neither yields a usable
// positive price.
func headlinePrice(m types.ComponentMap) float64 {
	if m == nil {
		return 0
	}
	if v, ok := m[types.ComponentElectricity]; ok && v > 0 && !math.IsInf(v, 0) {
		return v
	}
	sum := m.Sum(types.ImportAllIn...)
	if sum > 0 && !math.IsInf(sum, 0) {
		return sum
	}
	return 0
}
