package accounting

import (
	"testing"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

func TestPeriodBreakdownAt(t *testing.T) {
	s := NewStore(DefaultRetention())

	today := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	s.booked = []BookedSlot{
		{
			Start:       today.Add(-15 * time.Minute), // yesterday
			DynamicCost: types.ComponentMap{types.ComponentElectricity: 1.0},
		},
		{
			Start:        today, // first slot of today
			DynamicCost:  types.ComponentMap{types.ComponentElectricity: 0.10, types.ComponentGrid: 0.05},
			BaselineCost: types.ComponentMap{types.ComponentElectricity: 0.15},
			Savings:      types.ComponentMap{types.ComponentElectricity: 0.05},
		},
		{
			Start:       today.Add(15 * time.Minute),
			DynamicCost: types.ComponentMap{types.ComponentElectricity: 0.20},
			Savings:     types.ComponentMap{types.ComponentElectricity: 0.01},
		},
	}

	now := today.Add(12 * time.Hour)
	bd := s.PeriodBreakdownAt(slots.PeriodToday, now)

	if !approx(bd.Dyn[types.ComponentElectricity], 0.30) {
		t.Errorf("dyn electricity expected 0.30, got %f", bd.Dyn[types.ComponentElectricity])
	}
	if !approx(bd.Dyn[types.ComponentGrid], 0.05) {
		t.Errorf("dyn grid expected 0.05, got %f", bd.Dyn[types.ComponentGrid])
	}
	if !approx(bd.Base[types.ComponentElectricity], 0.15) {
		t.Errorf("base electricity expected 0.15, got %f", bd.Base[types.ComponentElectricity])
	}
	if !approx(bd.Sav[types.ComponentElectricity], 0.06) {
		t.Errorf("savings electricity expected 0.06, got %f", bd.Sav[types.ComponentElectricity])
	}

	// The year rollup also includes yesterday's slot.
	year := s.PeriodBreakdownAt(slots.PeriodYear, now)
	if !approx(year.Dyn[types.ComponentElectricity], 1.30) {
		t.Errorf("year dyn electricity expected 1.30, got %f", year.Dyn[types.ComponentElectricity])
	}
}

func TestPeriodBreakdownMidnightBoundary(t *testing.T) {
	s := NewStore(DefaultRetention())

	today := time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)
	s.booked = []BookedSlot{
		// Last slot of yesterday starts 23:45 and must stay out of today.
		{Start: today.Add(-15 * time.Minute), DynamicCost: types.ComponentMap{types.ComponentElectricity: 1.0}},
		// Slot starting exactly at midnight belongs to today.
		{Start: today, DynamicCost: types.ComponentMap{types.ComponentElectricity: 2.0}},
	}

	bd := s.PeriodBreakdownAt(slots.PeriodToday, today.Add(6*time.Hour))
	if !approx(bd.Dyn[types.ComponentElectricity], 2.0) {
		t.Errorf("today expected exactly the midnight slot, got %f", bd.Dyn[types.ComponentElectricity])
	}
}

func TestPeriodBreakdownEmpty(t *testing.T) {
	s := NewStore(DefaultRetention())
	bd := s.PeriodBreakdownAt(slots.PeriodWeek, time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC))
	if len(bd.Dyn) != 0 || len(bd.Base) != 0 || len(bd.Sav) != 0 {
		t.Error("empty ledger must roll up to empty maps")
	}
}
