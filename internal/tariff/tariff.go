package tariff

import "sort"

// Category is a connection category a customer is billed under.
type Category string

const (
	// DS1D is the low-capacity domestic single-phase category.
	DS1D Category = "DS1D"
	// DS2D is the higher-capacity domestic category. It is also the
	// fallback used when an unknown category string is supplied.
	DS2D Category = "DS2D"
)

// Config holds the per-category rate constants from the tariff order.
type Config struct {
	// RateUnderLimit is the energy rate (per unit) for consumption at or
	// below MonthlyLimit on a 30-day basis.
	RateUnderLimit float64 `json:"rate_under_limit"`
	// RateOverLimit is the energy rate for consumption above MonthlyLimit.
	RateOverLimit float64 `json:"rate_over_limit"`
	// SubsidyUnderLimit is the subsidy per unit at or below MonthlyLimit.
	SubsidyUnderLimit float64 `json:"subsidy_under_limit"`
	// SubsidyOverLimit is the subsidy per unit above MonthlyLimit.
	SubsidyOverLimit float64 `json:"subsidy_over_limit"`
	// FixedChargePerKW is the fixed monthly charge per kW of demanded load.
	FixedChargePerKW float64 `json:"fixed_charge_per_kw"`
	// MonthlyLimit is the consumption threshold (units per 30 days) at
	// which the over-limit rates kick in.
	MonthlyLimit float64 `json:"monthly_limit"`
}

// table is the single source of truth for categories and their rates.
// A category exists if and only if it has an entry here.
var table = map[Category]Config{
	DS1D: {
		RateUnderLimit:    7.42,
		RateOverLimit:     8.95,
		SubsidyUnderLimit: 4.97,
		SubsidyOverLimit:  5.11,
		FixedChargePerKW:  40,
		MonthlyLimit:      50,
	},
	DS2D: {
		RateUnderLimit:    7.42,
		RateOverLimit:     7.96,
		SubsidyUnderLimit: 3.30,
		SubsidyOverLimit:  3.43,
		FixedChargePerKW:  80,
		MonthlyLimit:      100,
	},
}

// Fallback is the category used when Resolve does not recognize its input.
const Fallback = DS2D

// Lookup returns the rate config for a known category. An override
// loaded from a tariff schedule document takes precedence over the
// built-in constants.
func Lookup(c Category) (Config, bool) {
	if _, known := table[c]; !known {
		return Config{}, false
	}
	if cfg, ok := overrideFor(c); ok {
		return cfg, true
	}
	return table[c], true
}

// Resolve maps a raw category string to a Category. The match is exact
// and case-sensitive. Unknown values resolve to Fallback with ok=false
// so callers can surface a notice; this is a soft condition, not an error.
func Resolve(raw string) (Category, bool) {
	c := Category(raw)
	if _, ok := table[c]; ok {
		return c, true
	}
	return Fallback, false
}

// Categories returns all known categories in sorted order.
func Categories() []Category {
	out := make([]Category, 0, len(table))
	for c := range table {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
