package types

import (
	"context"
	"time"

	"github.com/angas/tariffsaver-go/types/maybe"
)

// PriceSlot is one 15-minute price point of a tariff curve. Start is UTC,
// aligned to the slot grid. Prices are CHF/kWh per component. Baseline is only
// present when a comparison tariff is configured, and possibly not for every
// slot. Integrated carries the all-in total as reported by the API, when the
// tariff publishes one.
type PriceSlot struct {
	Start      time.Time
	Dynamic    ComponentMap
	Baseline   ComponentMap
	Integrated maybe.Maybe[float64]
}

// TariffProvider fetches the current price curve, dynamic plus optional
// baseline, typically covering a full day of slots.
type TariffProvider interface {
	GetPriceSlots(ctx context.Context) ([]PriceSlot, error)
}
