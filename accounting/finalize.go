package accounting

import (
	"log/slog"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

// finalizeMargin keeps a window from being finalized until its end is
// unambiguously in the past relative to sample latency.
const finalizeMargin = time.Minute

// FinalizeDueSlots walks forward from the last booked slot boundary and books
// every fully elapsed 15-minute window: consumption delta from the sample
// store, cost from the price table, outcome recorded as a status. Each
// iteration advances by exactly one slot width no matter the outcome, so a
// stuck upstream feed can never stall booking — a bad window is booked with
// its failure status, permanently. Re-running with better data never revises
// an existing booking.
//
// Returns the number of newly booked slots.
func (s *Store) FinalizeDueSlots(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A delta needs two bounds.
	if len(s.samples) < 2 {
		return 0
	}

	limit := slots.Floor(now.UTC().Add(-finalizeMargin))

	cursor := s.firstSampleSlotLocked()
	if last := s.lastBookedStartLocked(); !last.IsZero() {
		cursor = last.Add(slots.Width)
	}

	booked := 0
	for !cursor.Add(slots.Width).After(limit) {
		s.bookSlotLocked(cursor)
		booked++
		cursor = cursor.Add(slots.Width)
	}

	if booked > 0 {
		s.trimBookedLocked(now)
		s.dirty = true
		s.logger.Debug("finalized slots",
			slog.Int("count", booked),
			slog.Time("upTo", cursor))
	}

	return booked
}

func (s *Store) bookSlotLocked(start time.Time) {
	end := start.Add(slots.Width)

	kwhStart, okStart := s.lastKWHAtOrBeforeLocked(start)
	kwhEnd, okEnd := s.lastKWHAtOrBeforeLocked(end)
	if !okStart || !okEnd {
		s.appendBookedLocked(BookedSlot{Start: start, Status: StatusMissingSamples})
		return
	}

	delta := kwhEnd - kwhStart
	if delta < 0 {
		// Meter reset or rollover.
		s.appendBookedLocked(BookedSlot{Start: start, Status: StatusInvalid})
		return
	}

	entry, ok := s.priceEntryAtLocked(start)
	if !ok || len(entry.Dynamic) == 0 {
		s.appendBookedLocked(BookedSlot{
			Start:          start,
			ConsumptionKWH: delta,
			Status:         StatusUnpriced,
		})
		return
	}

	dynCost := costComponents(entry.Dynamic, delta)
	baseCost := costComponents(entry.Baseline, delta)

	// Savings only where both curves price the component.
	var savings types.ComponentMap
	for comp, base := range baseCost {
		dyn, ok := dynCost[comp]
		if !ok {
			continue
		}
		if savings == nil {
			savings = make(types.ComponentMap)
		}
		savings[comp] = base - dyn
	}

	status := StatusOK
	if len(dynCost) == 0 {
		status = StatusUnpriced
	}

	s.appendBookedLocked(BookedSlot{
		Start:          start,
		ConsumptionKWH: delta,
		Status:         status,
		DynamicCost:    dynCost,
		BaselineCost:   baseCost,
		Savings:        savings,
	})
}

// costComponents multiplies consumption into each nonzero price component.
// Zero prices are treated as absent so they never produce spurious zero-cost
// entries.
func costComponents(prices types.ComponentMap, deltaKWH float64) types.ComponentMap {
	var out types.ComponentMap
	for comp, price := range prices {
		if price == 0 {
			continue
		}
		if out == nil {
			out = make(types.ComponentMap)
		}
		out[comp] = deltaKWH * price
	}
	return out
}

func (s *Store) appendBookedLocked(b BookedSlot) {
	s.booked = append(s.booked, b)
}

func (s *Store) trimBookedLocked(now time.Time) {
	cutoff := now.UTC().Add(-time.Duration(s.retention.BookedDays) * 24 * time.Hour)
	i := 0
	for i < len(s.booked) && s.booked[i].Start.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.booked = append(s.booked[:0], s.booked[i:]...)
	}
}
