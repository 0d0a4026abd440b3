package accounting

import (
	"math"
	"sort"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

// SetPriceSlot overwrites the price entry at the slot's start. The tariff
// publishes each day's curve as immutable 15-minute blocks, so a re-fetch of
// the same day is idempotent: last write wins per slot start, no merging.
// Non-finite component values are dropped silently.
func (s *Store) SetPriceSlot(slot types.PriceSlot) {
	start := slot.Start.UTC()

	entry := PriceEntry{
		Dynamic:    sanitizeComponents(slot.Dynamic),
		Baseline:   sanitizeComponents(slot.Baseline),
		Integrated: slot.Integrated,
	}
	if entry.Integrated.IsValid() {
		if v := entry.Integrated.Value(); math.IsNaN(v) || math.IsInf(v, 0) {
			entry.Integrated = maybe.None[float64]()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[start] = entry
	s.dirty = true
}

// PriceComponents is an exact-key lookup; a slot without an entry is simply
// unpriced, there is no interpolation or nearest-neighbor fallback. Returned
// maps are copies.
func (s *Store) PriceComponents(start time.Time) (PriceEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.prices[start.UTC()]
	if !ok {
		return PriceEntry{}, false
	}
	entry.Dynamic = entry.Dynamic.Clone()
	entry.Baseline = entry.Baseline.Clone()
	return entry, true
}

// PriceCurve returns the full price table as sorted slot copies.
func (s *Store) PriceCurve() []types.PriceSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.PriceSlot, 0, len(s.prices))
	for start, entry := range s.prices {
		out = append(out, types.PriceSlot{
			Start:      start,
			Dynamic:    entry.Dynamic.Clone(),
			Baseline:   entry.Baseline.Clone(),
			Integrated: entry.Integrated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *Store) PriceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prices)
}

// TrimPrices evicts entries whose slot start is older than keepDays relative
// to now. Eviction is keyed on the slot start, not insert time.
func (s *Store) TrimPrices(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimPricesLocked(now)
}

func (s *Store) trimPricesLocked(now time.Time) {
	cutoff := now.UTC().Add(-time.Duration(s.retention.PriceDays) * 24 * time.Hour)
	for start := range s.prices {
		if start.Before(cutoff) {
			delete(s.prices, start)
			s.dirty = true
		}
	}
}

// priceEntryAtLocked looks up the entry for the slot containing t.
func (s *Store) priceEntryAtLocked(cursor time.Time) (PriceEntry, bool) {
	entry, ok := s.prices[slots.Floor(cursor)]
	return entry, ok
}

func sanitizeComponents(m types.ComponentMap) types.ComponentMap {
	if m == nil {
		return nil
	}
	out := make(types.ComponentMap, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
