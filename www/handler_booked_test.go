package www

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

func TestBookedHandler(t *testing.T) {
	store := accounting.NewStore(accounting.DefaultRetention())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Recent timestamps so sample retention never interferes.
	t0 := slots.Floor(time.Now().UTC().Add(-2 * time.Hour))
	if !store.AddSample(t0, 100.0) {
		t.Fatal("first sample rejected")
	}
	if !store.AddSample(t0.Add(15*time.Minute), 100.5) {
		t.Fatal("second sample rejected")
	}
	store.SetPriceSlot(types.PriceSlot{
		Start:   t0,
		Dynamic: types.ComponentMap{types.ComponentElectricity: 0.30},
	})
	if booked := store.FinalizeDueSlots(t0.Add(16 * time.Minute)); booked != 1 {
		t.Fatalf("expected 1 booked slot, got %d", booked)
	}

	handler := NewBookedHandler(logger, store)

	req := httptest.NewRequest(http.MethodGet, "/api/booked?since="+t0.Format(time.RFC3339), nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp bookedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || len(resp.Slots) != 1 {
		t.Fatalf("expected 1 booked slot in response, got count=%d len=%d", resp.Count, len(resp.Slots))
	}
	got := resp.Slots[0]
	if !got.Start.Equal(t0) {
		t.Errorf("slot start expected %v, got %v", t0, got.Start)
	}
	if got.Status != accounting.StatusOK {
		t.Errorf("slot status expected ok, got %s", got.Status)
	}
	if !approx(got.ConsumptionKWH, 0.5) {
		t.Errorf("consumption expected 0.5, got %f", got.ConsumptionKWH)
	}
	if !approx(got.Dyn[types.ComponentElectricity], 0.15) {
		t.Errorf("dyn electricity cost expected 0.15, got %f", got.Dyn[types.ComponentElectricity])
	}
}

func TestBookedHandlerSinceFiltersOutPastSlots(t *testing.T) {
	store := accounting.NewStore(accounting.DefaultRetention())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t0 := slots.Floor(time.Now().UTC().Add(-2 * time.Hour))
	store.AddSample(t0, 100.0)
	store.AddSample(t0.Add(15*time.Minute), 100.5)
	store.SetPriceSlot(types.PriceSlot{
		Start:   t0,
		Dynamic: types.ComponentMap{types.ComponentElectricity: 0.30},
	})
	store.FinalizeDueSlots(t0.Add(16 * time.Minute))

	handler := NewBookedHandler(logger, store)

	req := httptest.NewRequest(http.MethodGet,
		"/api/booked?since="+t0.Add(time.Hour).Format(time.RFC3339), nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var resp bookedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 0 || len(resp.Slots) != 0 {
		t.Errorf("expected no slots past since, got count=%d", resp.Count)
	}
}

func TestBookedHandlerRejectsBadSince(t *testing.T) {
	store := accounting.NewStore(accounting.DefaultRetention())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewBookedHandler(logger, store)
	req := httptest.NewRequest(http.MethodGet, "/api/booked?since=yesterday", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed since, got %d", rec.Code)
	}
}
