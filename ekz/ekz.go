package ekz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/angas/tariffsaver-go/slots"
	"github.com/angas/tariffsaver-go/types"
)

const baseURL = "https://api.tariffs.ekz.ch/v1"

// EKZ fetches 15-minute tariff curves from the public EKZ API. The dynamic
// tariff is required; a baseline (comparison) tariff is optional and its
// failure only logs a warning, since the dynamic curve alone is enough to
// book costs.
type EKZ struct {
	logger       *slog.Logger
	tariffName   string
	baselineName string
}

func New(tariffName string, baselineName *string) *EKZ {
	e := &EKZ{
		logger:     slog.Default().With("module", "ekz"),
		tariffName: tariffName,
	}
	if baselineName != nil {
		e.baselineName = *baselineName
	}
	return e
}

func (e *EKZ) GetPriceSlots(ctx context.Context) ([]types.PriceSlot, error) {
	active, err := e.fetchCurve(ctx, e.tariffName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariff %q: %w", e.tariffName, err)
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("no price slots returned for tariff %q", e.tariffName)
	}

	baseline := map[time.Time]parsedSlot{}
	if e.baselineName != "" {
		base, err := e.fetchCurve(ctx, e.baselineName)
		if err != nil {
			e.logger.Warn("failed to fetch baseline tariff",
				slog.String("tariff", e.baselineName),
				slog.Any("error", err))
		} else {
			for _, s := range base {
				baseline[s.start] = s
			}
		}
	}

	// De-duplicate by slot start, last item wins, then sort.
	byStart := make(map[time.Time]types.PriceSlot, len(active))
	for _, s := range active {
		byStart[s.start] = types.PriceSlot{
			Start:      s.start,
			Dynamic:    s.components,
			Baseline:   baseline[s.start].components,
			Integrated: s.integrated,
		}
	}

	out := make([]types.PriceSlot, 0, len(byStart))
	for _, s := range byStart {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	return out, nil
}

func (e *EKZ) fetchCurve(ctx context.Context, tariffName string) ([]parsedSlot, error) {
	u := fmt.Sprintf("%s/tariffs?tariff_name=%s", baseURL, url.QueryEscape(tariffName))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tariffs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload struct {
		Prices []json.RawMessage `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Prices == nil {
		return nil, fmt.Errorf("payload is missing 'prices'")
	}

	curve := make([]parsedSlot, 0, len(payload.Prices))
	for _, raw := range payload.Prices {
		slot, ok := parsePriceItem(raw)
		if !ok {
			continue
		}
		if !slots.IsAligned(slot.start) {
			e.logger.Debug("skipping unaligned price slot", slog.Time("start", slot.start))
			continue
		}
		curve = append(curve, slot)
	}

	return curve, nil
}
