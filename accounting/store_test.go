package accounting

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

// addSample feeds a reading as if it arrived right at its own timestamp.
func addSample(s *Store, at time.Time, kwh float64) bool {
	return s.addSampleAt(at, at, kwh)
}

func TestAddSample(t *testing.T) {
	s := NewStore(DefaultRetention())

	if !addSample(s, t0, 100.0) {
		t.Fatal("first sample should be stored")
	}
	if addSample(s, t0.Add(500*time.Millisecond), 100.1) {
		t.Error("sample within dedup tolerance should be dropped")
	}
	if !addSample(s, t0.Add(time.Second), 100.1) {
		t.Error("sample at the tolerance boundary should be stored")
	}
	if got := s.SampleCount(); got != 2 {
		t.Errorf("expected 2 samples, got %d", got)
	}
}

func TestAddSampleRejectsFutureTimestamps(t *testing.T) {
	s := NewStore(DefaultRetention())

	addSample(s, t0, 100.0)
	addSample(s, t0.Add(5*time.Minute), 100.25)

	// A reading stamped years ahead of the clock must not enter the store:
	// if it did, the retention cutoff would jump forward and wipe the real
	// history, and its timestamp would jam the dedup ordering for good.
	if s.addSampleAt(t0.Add(10*time.Minute), t0.AddDate(4, 0, 0), 200.0) {
		t.Fatal("future-dated sample should be rejected")
	}
	if got := s.SampleCount(); got != 2 {
		t.Fatalf("history damaged by rejected sample: %d samples remain, want 2", got)
	}

	if !s.addSampleAt(t0.Add(10*time.Minute), t0.Add(10*time.Minute), 100.5) {
		t.Fatal("legit reading after the bad one was rejected")
	}
	if got := s.SampleCount(); got != 3 {
		t.Fatalf("expected 3 samples, got %d", got)
	}

	if booked := s.FinalizeDueSlots(t0.Add(16 * time.Minute)); booked != 1 {
		t.Errorf("finalization stalled after the bad reading, booked %d slots", booked)
	}
}

func TestAddSampleToleratesClockSkew(t *testing.T) {
	s := NewStore(DefaultRetention())
	// A minute ahead of the clock is ordinary skew, not poison.
	if !s.addSampleAt(t0, t0.Add(time.Minute), 100.0) {
		t.Error("reading within the skew allowance should be stored")
	}
}

func TestAddSampleRejectsNonFinite(t *testing.T) {
	s := NewStore(DefaultRetention())

	if s.AddSample(t0, math.NaN()) {
		t.Error("NaN should be rejected")
	}
	if s.AddSample(t0, math.Inf(1)) {
		t.Error("+Inf should be rejected")
	}
	if s.AddSample(t0, math.Inf(-1)) {
		t.Error("-Inf should be rejected")
	}
	if got := s.SampleCount(); got != 0 {
		t.Errorf("expected 0 samples, got %d", got)
	}
}

func TestAddSampleSetsDirty(t *testing.T) {
	s := NewStore(DefaultRetention())
	if s.Dirty() {
		t.Fatal("fresh store should be clean")
	}
	addSample(s, t0, 100.0)
	if !s.Dirty() {
		t.Error("AddSample should set the dirty flag")
	}
}

func TestSampleRetentionTrim(t *testing.T) {
	s := NewStore(Retention{SampleDays: 1})

	addSample(s, t0, 100.0)
	addSample(s, t0.Add(time.Hour), 101.0)
	// A sample two days later pushes the first two past the retention window.
	addSample(s, t0.Add(48*time.Hour), 110.0)

	if got := s.SampleCount(); got != 1 {
		t.Errorf("expected 1 sample after trim, got %d", got)
	}
}

func TestLastFetchSuccess(t *testing.T) {
	s := NewStore(DefaultRetention())
	if !s.LastFetchSuccess().IsZero() {
		t.Fatal("fresh store should have no fetch success")
	}
	s.SetLastFetchSuccess(t0)
	if !s.LastFetchSuccess().Equal(t0) {
		t.Errorf("expected %v, got %v", t0, s.LastFetchSuccess())
	}
	if !s.Dirty() {
		t.Error("SetLastFetchSuccess should set the dirty flag")
	}
}

func TestBookedSince(t *testing.T) {
	s := NewStore(DefaultRetention())
	s.booked = []BookedSlot{
		{Start: t0},
		{Start: t0.Add(15 * time.Minute)},
		{Start: t0.Add(30 * time.Minute)},
	}

	got := s.BookedSince(t0.Add(15 * time.Minute))
	if len(got) != 2 {
		t.Fatalf("expected 2 booked slots, got %d", len(got))
	}
	if !got[0].Start.Equal(t0.Add(15 * time.Minute)) {
		t.Errorf("unexpected first slot start %v", got[0].Start)
	}
}
