package ekz

import (
	"encoding/json"
	"time"

	"github.com/angas/tariffsaver-go/types"
	"github.com/angas/tariffsaver-go/types/maybe"
)

// Unit spellings seen in the wild; Swagger says CHF_kWh but deployments vary.
var chfPerKWHUnits = map[string]bool{
	"CHF_kWh":     true,
	"CHF/kWh":     true,
	"CHF_PER_KWH": true,
	"CHF_KWH":     true,
}

type parsedSlot struct {
	start      time.Time
	components types.ComponentMap
	integrated maybe.Maybe[float64]
}

// parsePriceItem extracts the slot start and every per-component CHF/kWh
// price from one raw API item. Component keys are open: anything except the
// timestamp fields is treated as a candidate component. Zero values are
// dropped so they read as "absent" downstream.
func parsePriceItem(raw json.RawMessage) (parsedSlot, bool) {
	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil {
		return parsedSlot{}, false
	}

	startRaw, ok := item["start_timestamp"]
	if !ok {
		return parsedSlot{}, false
	}
	var startStr string
	if err := json.Unmarshal(startRaw, &startStr); err != nil {
		return parsedSlot{}, false
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return parsedSlot{}, false
	}

	comps := make(types.ComponentMap)
	for key, val := range item {
		if key == "start_timestamp" || key == "end_timestamp" {
			continue
		}
		v, ok := parseComponentValue(val)
		if !ok || v == 0 {
			continue
		}
		comps[types.Component(key)] = v
	}
	if len(comps) == 0 {
		return parsedSlot{}, false
	}

	slot := parsedSlot{start: start.UTC(), components: comps}
	if v, ok := comps[types.ComponentIntegrated]; ok {
		slot.integrated = maybe.Some(v)
	}
	return slot, true
}

// parseComponentValue handles the shapes the API has used over time:
// a bare number, {"unit": "CHF_kWh", "value": 0.123} with value/amount/price
// synonyms, or a legacy list of such objects which is summed.
func parseComponentValue(raw json.RawMessage) (float64, bool) {
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		return parseComponentObject(obj)
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var total float64
		found := false
		for _, entry := range list {
			if v, ok := parseComponentObject(entry); ok {
				total += v
				found = true
			}
		}
		return total, found
	}

	return 0, false
}

func parseComponentObject(obj map[string]json.RawMessage) (float64, bool) {
	if unitRaw, ok := obj["unit"]; ok {
		var unit string
		if err := json.Unmarshal(unitRaw, &unit); err == nil && unit != "" && !chfPerKWHUnits[unit] {
			return 0, false
		}
	}

	for _, key := range []string{"value", "amount", "price", "chf_per_kwh"} {
		valRaw, ok := obj[key]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(valRaw, &v); err == nil {
			return v, true
		}
	}
	return 0, false
}
