package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

// NewFetchPricesTask returns the daily tariff curve fetch. A fetch is a full
// overwrite of every slot it covers. If the table lacks coverage for the next
// slot at startup, one fetch runs immediately instead of waiting for the
// scheduled time.
func NewFetchPricesTask(logger *slog.Logger, store *accounting.Store, provider types.TariffProvider, persist func()) func() {
	if needImmediatePriceFetch(store) {
		logger.Info("need an immediate tariff fetch")
		runFetchPricesTask(logger, store, provider, persist)
	} else {
		logger.Debug("no need for an immediate tariff fetch")
	}

	return func() { runFetchPricesTask(logger, store, provider, persist) }
}

func runFetchPricesTask(logger *slog.Logger, store *accounting.Store, provider types.TariffProvider, persist func()) {
	logger.Debug("running tariff fetch task...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	priceSlots, err := provider.GetPriceSlots(ctx)
	if err != nil {
		logger.Error("tariff fetch task error", slog.Any("error", err))
		return
	}

	for _, slot := range priceSlots {
		store.SetPriceSlot(slot)
	}

	now := time.Now()
	store.SetLastFetchSuccess(now)
	store.TrimPrices(now)
	persist()

	logger.Info("tariff fetch task done", slog.Int("noOfSlotsUpdated", len(priceSlots)))
}

func needImmediatePriceFetch(store *accounting.Store) bool {
	_, ok := store.PriceComponents(slots.Next(time.Now()))
	return !ok
}
