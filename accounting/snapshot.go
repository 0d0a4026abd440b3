package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

// SchemaVersion is the current on-disk payload schema. The store serializes
// to one self-describing JSON blob per install instance; older blobs (v2, v3)
// are migrated forward on load.
const SchemaVersion = 4

// Snapshot is the portable form of a Store's persisted state.
type Snapshot struct {
	Samples          []Sample
	Prices           map[time.Time]PriceEntry
	Booked           []BookedSlot
	LastFetchSuccess time.Time
}

type rawSnapshot struct {
	SchemaVersion     int             `json:"schema_version"`
	Samples           json.RawMessage `json:"samples"`
	PriceSlots        json.RawMessage `json:"price_slots"`
	Booked            json.RawMessage `json:"booked"`
	LastAPISuccessUTC *string         `json:"last_api_success_utc"`
}

type sampleV3 struct {
	TS  float64 `json:"ts"`
	KWH float64 `json:"kwh"`
}

type priceV4 struct {
	Dyn        types.ComponentMap `json:"dyn"`
	Base       types.ComponentMap `json:"base,omitempty"`
	Integrated *float64           `json:"integrated,omitempty"`
}

type bookedV4 struct {
	Start  string             `json:"start"`
	KWH    float64            `json:"kwh"`
	Status string             `json:"status"`
	Dyn    types.ComponentMap `json:"dyn,omitempty"`
	Base   types.ComponentMap `json:"base,omitempty"`
	Sav    types.ComponentMap `json:"sav,omitempty"`
}

type priceV3 struct {
	Dyn  float64  `json:"dyn"`
	Base *float64 `json:"base,omitempty"`
}

type bookedV3 struct {
	Start      string  `json:"start"`
	KWH        float64 `json:"kwh"`
	Status     string  `json:"status"`
	DynCHF     float64 `json:"dyn_chf"`
	BaseCHF    float64 `json:"base_chf"`
	SavingsCHF float64 `json:"savings_chf"`
}

// v2 booked records are keyed by slot END time and carry no savings field.
type bookedV2 struct {
	KWH     float64 `json:"kwh"`
	DynCHF  float64 `json:"dyn_chf"`
	BaseCHF float64 `json:"base_chf"`
	Status  string  `json:"status"`
}

// DecodeSnapshot parses a persisted blob, migrating v2/v3 payloads forward.
// Migration is pure and idempotent: decoding a migrated-and-reencoded blob
// yields the same snapshot. Malformed legacy records are skipped, never
// fatal; only an unreadable envelope is an error.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	if len(raw) == 0 {
		return &Snapshot{Prices: make(map[time.Time]PriceEntry)}, nil
	}

	var env rawSnapshot
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot envelope: %w", err)
	}

	version := env.SchemaVersion
	if version < 2 || version > SchemaVersion {
		// Corrupt or missing tag: fall back to shape sniffing, kept strictly
		// out of the primary versioned path.
		version = sniffSchemaVersion(env)
	}

	var snap *Snapshot
	switch version {
	case 2:
		snap = migrateV2(env)
	case 3:
		snap = migrateV3(env)
	case SchemaVersion:
		snap = decodeV4(env)
	default:
		return nil, fmt.Errorf("unsupported snapshot schema version %d", env.SchemaVersion)
	}

	if env.LastAPISuccessUTC != nil {
		if t, err := time.Parse(time.RFC3339, *env.LastAPISuccessUTC); err == nil {
			snap.LastFetchSuccess = t.UTC()
		}
	}
	return snap, nil
}

// sniffSchemaVersion is the defensive fallback for blobs with an unusable
// version tag. v2 stored samples as [iso, kwh] pairs; v3 and v4 use record
// objects and differ in the booked cost shape.
func sniffSchemaVersion(env rawSnapshot) int {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(env.Samples, &pairs); err == nil && len(pairs) > 0 {
		var iso string
		if json.Unmarshal(pairs[0][0], &iso) == nil {
			return 2
		}
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(env.Booked, &records); err == nil {
		for _, rec := range records {
			if _, ok := rec["dyn"]; ok {
				return SchemaVersion
			}
			if _, ok := rec["dyn_chf"]; ok {
				return 3
			}
		}
	}
	return SchemaVersion
}

func decodeV4(env rawSnapshot) *Snapshot {
	snap := &Snapshot{Prices: make(map[time.Time]PriceEntry)}

	var samples []sampleV3
	if err := json.Unmarshal(env.Samples, &samples); err == nil {
		for _, s := range samples {
			snap.Samples = append(snap.Samples, Sample{At: epochToTime(s.TS), KWH: s.KWH})
		}
	}

	var prices map[string]priceV4
	if err := json.Unmarshal(env.PriceSlots, &prices); err == nil {
		for iso, p := range prices {
			start, err := time.Parse(time.RFC3339, iso)
			if err != nil {
				continue
			}
			entry := PriceEntry{Dynamic: p.Dyn, Baseline: p.Base}
			if p.Integrated != nil {
				entry.Integrated = maybe.Some(*p.Integrated)
			}
			snap.Prices[start.UTC()] = entry
		}
	}

	var booked []bookedV4
	if err := json.Unmarshal(env.Booked, &booked); err == nil {
		for _, b := range booked {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			snap.Booked = append(snap.Booked, BookedSlot{
				Start:          start.UTC(),
				ConsumptionKWH: b.KWH,
				Status:         parseStatus(b.Status),
				DynamicCost:    b.Dyn,
				BaselineCost:   b.Base,
				Savings:        b.Sav,
			})
		}
	}

	sortSnapshot(snap)
	return snap
}

// migrateV3 lifts the middle-generation schema: scalar dyn/base/savings CHF
// fields and scalar prices become single-component maps under "electricity",
// numeric values preserved exactly.
func migrateV3(env rawSnapshot) *Snapshot {
	snap := &Snapshot{Prices: make(map[time.Time]PriceEntry)}

	var samples []sampleV3
	if err := json.Unmarshal(env.Samples, &samples); err == nil {
		for _, s := range samples {
			snap.Samples = append(snap.Samples, Sample{At: epochToTime(s.TS), KWH: s.KWH})
		}
	}

	var prices map[string]priceV3
	if err := json.Unmarshal(env.PriceSlots, &prices); err == nil {
		for iso, p := range prices {
			start, err := time.Parse(time.RFC3339, iso)
			if err != nil {
				continue
			}
			entry := PriceEntry{
				Dynamic: types.ComponentMap{types.ComponentElectricity: p.Dyn},
			}
			if p.Base != nil {
				entry.Baseline = types.ComponentMap{types.ComponentElectricity: *p.Base}
			}
			snap.Prices[start.UTC()] = entry
		}
	}

	var booked []bookedV3
	if err := json.Unmarshal(env.Booked, &booked); err == nil {
		for _, b := range booked {
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				continue
			}
			snap.Booked = append(snap.Booked, BookedSlot{
				Start:          start.UTC(),
				ConsumptionKWH: b.KWH,
				Status:         parseStatus(b.Status),
				DynamicCost:    scalarComponent(b.DynCHF),
				BaselineCost:   scalarComponent(b.BaseCHF),
				Savings:        scalarComponent(b.SavingsCHF),
			})
		}
	}

	sortSnapshot(snap)
	return snap
}

// migrateV2 lifts the oldest schema: samples as [iso, kwh] pairs, booked
// records keyed by slot END, per-slot prices a bare scalar.
func migrateV2(env rawSnapshot) *Snapshot {
	snap := &Snapshot{Prices: make(map[time.Time]PriceEntry)}

	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(env.Samples, &pairs); err == nil {
		for _, p := range pairs {
			var iso string
			var kwh float64
			if json.Unmarshal(p[0], &iso) != nil || json.Unmarshal(p[1], &kwh) != nil {
				continue
			}
			at, err := time.Parse(time.RFC3339, iso)
			if err != nil {
				continue
			}
			snap.Samples = append(snap.Samples, Sample{At: at.UTC(), KWH: kwh})
		}
	}

	var prices map[string]float64
	if err := json.Unmarshal(env.PriceSlots, &prices); err == nil {
		for iso, dyn := range prices {
			start, err := time.Parse(time.RFC3339, iso)
			if err != nil {
				continue
			}
			snap.Prices[start.UTC()] = PriceEntry{
				Dynamic: types.ComponentMap{types.ComponentElectricity: dyn},
			}
		}
	}

	var booked map[string]bookedV2
	if err := json.Unmarshal(env.Booked, &booked); err == nil {
		for endISO, b := range booked {
			end, err := time.Parse(time.RFC3339, endISO)
			if err != nil {
				continue
			}
			rec := BookedSlot{
				Start:          end.UTC().Add(-slots.Width),
				ConsumptionKWH: b.KWH,
				Status:         parseStatus(b.Status),
				DynamicCost:    scalarComponent(b.DynCHF),
				BaselineCost:   scalarComponent(b.BaseCHF),
			}
			// v2 never stored savings; derive it where both costs exist so
			// rollups stay comparable across generations.
			if rec.DynamicCost != nil && rec.BaselineCost != nil {
				rec.Savings = scalarComponent(b.BaseCHF - b.DynCHF)
			}
			snap.Booked = append(snap.Booked, rec)
		}
	}

	sortSnapshot(snap)
	return snap
}

// EncodeSnapshot serializes the store's state as a current-version blob.
func (s *Store) EncodeSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encodeSnapshotLocked()
}

func (s *Store) encodeSnapshotLocked() ([]byte, error) {
	samples := make([]sampleV3, len(s.samples))
	for i, smp := range s.samples {
		samples[i] = sampleV3{TS: timeToEpoch(smp.At), KWH: smp.KWH}
	}

	prices := make(map[string]priceV4, len(s.prices))
	for start, entry := range s.prices {
		p := priceV4{Dyn: entry.Dynamic, Base: entry.Baseline}
		if entry.Integrated.IsValid() {
			v := entry.Integrated.Value()
			p.Integrated = &v
		}
		prices[start.Format(time.RFC3339)] = p
	}

	booked := make([]bookedV4, len(s.booked))
	for i, b := range s.booked {
		booked[i] = bookedV4{
			Start:  b.Start.Format(time.RFC3339),
			KWH:    b.ConsumptionKWH,
			Status: string(b.Status),
			Dyn:    b.DynamicCost,
			Base:   b.BaselineCost,
			Sav:    b.Savings,
		}
	}

	samplesRaw, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("marshalling samples: %w", err)
	}
	pricesRaw, err := json.Marshal(prices)
	if err != nil {
		return nil, fmt.Errorf("marshalling price slots: %w", err)
	}
	bookedRaw, err := json.Marshal(booked)
	if err != nil {
		return nil, fmt.Errorf("marshalling booked slots: %w", err)
	}

	env := rawSnapshot{
		SchemaVersion: SchemaVersion,
		Samples:       samplesRaw,
		PriceSlots:    pricesRaw,
		Booked:        bookedRaw,
	}
	if !s.lastFetchSuccess.IsZero() {
		iso := s.lastFetchSuccess.Format(time.RFC3339)
		env.LastAPISuccessUTC = &iso
	}

	return json.Marshal(env)
}

// LoadSnapshot replaces the store's state with a decoded snapshot. Called
// once at startup, before any mutation; it does not set the dirty flag.
func (s *Store) LoadSnapshot(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = snap.Samples
	s.booked = snap.Booked
	s.prices = snap.Prices
	if s.prices == nil {
		s.prices = make(map[time.Time]PriceEntry)
	}
	s.lastFetchSuccess = snap.LastFetchSuccess
}

// Save encodes the state and hands it to write, clearing the dirty flag only
// after write succeeds. The lock is held across encode, write and clear so no
// concurrent mutation can be lost between them.
func (s *Store) Save(ctx context.Context, write func(ctx context.Context, version int, payload []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := s.encodeSnapshotLocked()
	if err != nil {
		return err
	}
	if err := write(ctx, SchemaVersion, payload); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func parseStatus(str string) Status {
	switch Status(str) {
	case StatusOK, StatusUnpriced, StatusInvalid, StatusMissingSamples:
		return Status(str)
	default:
		return StatusInvalid
	}
}

func scalarComponent(chf float64) types.ComponentMap {
	if chf == 0 {
		return nil
	}
	return types.ComponentMap{types.ComponentElectricity: chf}
}

func epochToTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func timeToEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func sortSnapshot(snap *Snapshot) {
	sort.Slice(snap.Samples, func(i, j int) bool {
		return snap.Samples[i].At.Before(snap.Samples[j].At)
	})
	sort.Slice(snap.Booked, func(i, j int) bool {
		return snap.Booked[i].Start.Before(snap.Booked[j].Start)
	})
}
