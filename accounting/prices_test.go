package accounting

import (
	"math"
	"testing"
	"time"

	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

func TestSetPriceSlotOverwrite(t *testing.T) {
	s := NewStore(DefaultRetention())

	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)
	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.35}, nil)

	entry, ok := s.PriceComponents(t0)
	if !ok {
		t.Fatal("expected price entry")
	}
	if got := entry.Dynamic[types.ComponentElectricity]; !approx(got, 0.35) {
		t.Errorf("last write wins, expected 0.35, got %f", got)
	}
	if got := s.PriceCount(); got != 1 {
		t.Errorf("expected 1 entry, got %d", got)
	}
}

func TestSetPriceSlotDropsNonFinite(t *testing.T) {
	s := NewStore(DefaultRetention())

	s.SetPriceSlot(types.PriceSlot{
		Start: t0,
		Dynamic: types.ComponentMap{
			types.ComponentElectricity: 0.30,
			types.ComponentGrid:        math.NaN(),
		},
		Integrated: maybe.Some(math.Inf(1)),
	})

	entry, ok := s.PriceComponents(t0)
	if !ok {
		t.Fatal("expected price entry")
	}
	if _, ok := entry.Dynamic[types.ComponentGrid]; ok {
		t.Error("NaN component should be dropped")
	}
	if entry.Integrated.IsValid() {
		t.Error("non-finite integrated price should be dropped")
	}
}

func TestPriceComponentsExactKey(t *testing.T) {
	s := NewStore(DefaultRetention())
	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)

	if _, ok := s.PriceComponents(t0.Add(15 * time.Minute)); ok {
		t.Error("neighboring slot must not resolve")
	}
}

func TestPriceComponentsReturnsCopies(t *testing.T) {
	s := NewStore(DefaultRetention())
	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)

	entry, _ := s.PriceComponents(t0)
	entry.Dynamic[types.ComponentElectricity] = 99

	fresh, _ := s.PriceComponents(t0)
	if !approx(fresh.Dynamic[types.ComponentElectricity], 0.30) {
		t.Error("mutating a returned map must not affect the store")
	}
}

func TestTrimPrices(t *testing.T) {
	s := NewStore(Retention{PriceDays: 7})

	old := t0.Add(-8 * 24 * time.Hour)
	setPrice(s, old, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)
	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)

	s.TrimPrices(t0)

	if _, ok := s.PriceComponents(old); ok {
		t.Error("entry past retention should be evicted")
	}
	if _, ok := s.PriceComponents(t0); !ok {
		t.Error("recent entry should survive")
	}
}

func TestPriceCurveSorted(t *testing.T) {
	s := NewStore(DefaultRetention())
	setPrice(s, t0.Add(30*time.Minute), types.ComponentMap{types.ComponentElectricity: 0.20}, nil)
	setPrice(s, t0, types.ComponentMap{types.ComponentElectricity: 0.30}, nil)
	setPrice(s, t0.Add(15*time.Minute), types.ComponentMap{types.ComponentElectricity: 0.25}, nil)

	curve := s.PriceCurve()
	if len(curve) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(curve))
	}
	for i := 1; i < len(curve); i++ {
		if !curve[i-1].Start.Before(curve[i].Start) {
			t.Errorf("curve not sorted at index %d", i)
		}
	}
}
