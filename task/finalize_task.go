package task

import (
	"log/slog"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
)

// NewFinalizeTask books every fully elapsed slot. Bookings persist
// immediately rather than waiting for the next persist tick; a booked slot is
// immutable and must not be lost to a crash.
func NewFinalizeTask(logger *slog.Logger, store *accounting.Store, persist func(), onBooked func(int)) func() {
	return func() {
		booked := store.FinalizeDueSlots(time.Now())
		if booked == 0 {
			return
		}

		logger.Info("booked slots", slog.Int("count", booked))
		persist()
		if onBooked != nil {
			onBooked(booked)
		}
	}
}
