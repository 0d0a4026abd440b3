package types

// Component is one named line-item of an electricity tariff. The set is open
// but bounded: unknown keys coming from the API are carried through untouched.
type Component string

const (
	ComponentElectricity   Component = "electricity"
	ComponentGrid          Component = "grid"
	ComponentRegionalFees  Component = "regional_fees"
	ComponentMetering      Component = "metering"
	ComponentRefundStorage Component = "refund_storage"
	ComponentIntegrated    Component = "integrated"
	ComponentFeedIn        Component = "feed_in"
)

// KnownComponents lists every component key the EKZ tariff API documents.
var KnownComponents = []Component{
	ComponentElectricity,
	ComponentGrid,
	ComponentRegionalFees,
	ComponentMetering,
	ComponentRefundStorage,
	ComponentIntegrated,
	ComponentFeedIn,
}

// ImportAllIn is the canonical component set for "all-in" import cost totals.
// It excludes feed_in (export credit) and integrated (the API's own pre-summed
// total, which would double count).
var ImportAllIn = []Component{
	ComponentElectricity,
	ComponentGrid,
	ComponentRegionalFees,
	ComponentMetering,
	ComponentRefundStorage,
}

// ComponentMap maps tariff components to CHF amounts (per kWh for prices,
// absolute for costs).
type ComponentMap map[Component]float64

// Sum adds up the values for the allowed keys only. Missing keys count as
// zero.
func (m ComponentMap) Sum(allowed ...Component) float64 {
	var total float64
	for _, c := range allowed {
		total += m[c]
	}
	return total
}

// Clone returns an independent copy, nil in for nil out.
func (m ComponentMap) Clone() ComponentMap {
	if m == nil {
		return nil
	}
	out := make(ComponentMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
