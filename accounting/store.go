package accounting

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

// dedupTolerance guards the sample feed against event storms: a reading
// arriving within this interval of the previous stored one is dropped.
const dedupTolerance = time.Second

// maxClockSkew bounds how far ahead of the wall clock a reading's timestamp
// may sit. A future-dated sample would poison the dedup ordering and drag the
// retention cutoff forward, so anything beyond the skew is dropped.
const maxClockSkew = 5 * time.Minute

// Sample is one raw meter observation: the cumulative energy register at an
// instant. Monotonic non-decreasing except on meter resets.
type Sample struct {
	At  time.Time
	KWH float64
}

// Status is the terminal outcome of a finalized slot. Data gaps are statuses,
// not errors: once booked, a slot keeps its status forever.
type Status string

const (
	StatusOK             Status = "ok"
	StatusUnpriced       Status = "unpriced"
	StatusInvalid        Status = "invalid"
	StatusMissingSamples Status = "missing_samples"
)

// BookedSlot is the immutable record for one finalized 15-minute window.
type BookedSlot struct {
	Start          time.Time
	ConsumptionKWH float64
	Status         Status
	DynamicCost    types.ComponentMap
	BaselineCost   types.ComponentMap
	Savings        types.ComponentMap
}

// PriceEntry holds the per-component prices for one slot start.
type PriceEntry struct {
	Dynamic    types.ComponentMap
	Baseline   types.ComponentMap
	Integrated maybe.Maybe[float64]
}

// Retention windows in days for the three data sets.
type Retention struct {
	SampleDays int
	PriceDays  int
	BookedDays int
}

func DefaultRetention() Retention {
	return Retention{SampleDays: 14, PriceDays: 7, BookedDays: 400}
}

func (r Retention) orDefaults() Retention {
	d := DefaultRetention()
	if r.SampleDays > 0 {
		d.SampleDays = r.SampleDays
	}
	if r.PriceDays > 0 {
		d.PriceDays = r.PriceDays
	}
	if r.BookedDays > 0 {
		d.BookedDays = r.BookedDays
	}
	return d
}

// Store is the aggregate root for one install instance: raw samples, the
// price table, the booked-slot ledger and the last successful tariff fetch.
// All mutation goes through the one mutex; operations are cheap linear scans.
type Store struct {
	mu        sync.Mutex
	logger    *slog.Logger
	retention Retention

	samples          []Sample
	prices           map[time.Time]PriceEntry
	booked           []BookedSlot
	lastFetchSuccess time.Time

	// dirty tracks persisted state going stale. Set by every mutating path,
	// cleared only by a successful Save.
	dirty bool
}

func NewStore(retention Retention) *Store {
	return &Store{
		logger:    slog.Default().With("module", "accounting"),
		retention: retention.orDefaults(),
		prices:    make(map[time.Time]PriceEntry),
	}
}

// AddSample appends a meter reading. Non-finite values, timestamps ahead of
// the wall clock, and readings within the dedup tolerance of the previous one
// are dropped silently; the feed is noisy by nature and rejection is a no-op,
// never an error. Returns whether the sample was stored.
func (s *Store) AddSample(at time.Time, kwh float64) bool {
	return s.addSampleAt(time.Now(), at, kwh)
}

func (s *Store) addSampleAt(now, at time.Time, kwh float64) bool {
	if math.IsNaN(kwh) || math.IsInf(kwh, 0) {
		return false
	}

	at = at.UTC()
	now = now.UTC()
	if at.After(now.Add(maxClockSkew)) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.samples); n > 0 {
		if at.Sub(s.samples[n-1].At) < dedupTolerance {
			return false
		}
	}

	s.samples = append(s.samples, Sample{At: at, KWH: kwh})
	s.trimSamplesLocked(now)
	s.dirty = true
	return true
}

// trimSamplesLocked evicts samples past retention. The cutoff is keyed on the
// wall clock, never on a sample's own timestamp.
func (s *Store) trimSamplesLocked(now time.Time) {
	cutoff := now.Add(-time.Duration(s.retention.SampleDays) * 24 * time.Hour)
	i := 0
	for i < len(s.samples) && s.samples[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// lastKWHAtOrBeforeLocked returns the most recent sample value at or before t.
// Samples are appended in order, so the reverse scan terminates early.
func (s *Store) lastKWHAtOrBeforeLocked(t time.Time) (float64, bool) {
	for i := len(s.samples) - 1; i >= 0; i-- {
		if !s.samples[i].At.After(t) {
			return s.samples[i].KWH, true
		}
	}
	return 0, false
}

func (s *Store) SampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func (s *Store) BookedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.booked)
}

// BookedSince returns copies of the booked slots starting at or after t.
func (s *Store) BookedSince(t time.Time) []BookedSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BookedSlot
	for _, b := range s.booked {
		if !b.Start.Before(t) {
			out = append(out, b.clone())
		}
	}
	return out
}

func (b BookedSlot) clone() BookedSlot {
	b.DynamicCost = b.DynamicCost.Clone()
	b.BaselineCost = b.BaselineCost.Clone()
	b.Savings = b.Savings.Clone()
	return b
}

func (s *Store) SetLastFetchSuccess(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchSuccess = t.UTC()
	s.dirty = true
}

func (s *Store) LastFetchSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetchSuccess
}

func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// lastBookedStartLocked returns the zero time when nothing was ever booked.
func (s *Store) lastBookedStartLocked() time.Time {
	if len(s.booked) == 0 {
		return time.Time{}
	}
	return s.booked[len(s.booked)-1].Start
}

// firstSampleSlotLocked returns the slot-aligned start of the earliest sample.
func (s *Store) firstSampleSlotLocked() time.Time {
	if len(s.samples) == 0 {
		return time.Time{}
	}
	return slots.Floor(s.samples[0].At)
}
