// Package radiation reduces a feature's raw attributes to one annual
// radiation figure per square meter. Source records are inconsistent about
// which fields they fill and what units they use, so normalization is an
// ordered chain of rules, each tried only when the previous one produced
// nothing usable.
package radiation

import (
	"math"

	"github.com/heliomap/solar-cli/internal/model"
)

// Calibration constants for backing irradiance out of reported production.
// Fixed assumptions about the installed system, calibrated against the
// cadastre's own yield figures.
const (
	moduleEfficiency = 0.17
	systemFactor     = 0.85
	combinedFactor   = moduleEfficiency * systemFactor // 0.1445
)

// Plausibility window in kWh/m²/year, exclusive on both ends. Readings
// outside it are assumed mis-scaled.
const (
	windowLow  = 200.0
	windowHigh = 20000.0
)

// rule is one tier of the chain: a named pure transform that either yields a
// value or defers to the next tier.
type rule struct {
	name  string
	apply func(attrs model.RawAttributes) (float64, bool)
}

var rules = []rule{
	{name: "production-derived", apply: fromProduction},
	{name: "monthly-derived", apply: fromMonthly},
	{name: "unit-inference", apply: fromGeneral},
	{name: "unconditional", apply: fromAnything},
}

// Normalize derives the annual radiation per area for one attribute set,
// always non-negative and rounded to the nearest integer. Pure and
// deterministic.
func Normalize(attrs model.RawAttributes) model.NormalizedResult {
	var radiation float64
	for _, r := range rules {
		if v, ok := r.apply(attrs); ok {
			radiation = v
			break
		}
	}
	radiation = math.Round(radiation)
	if radiation < 0 {
		radiation = 0
	}

	res := model.NormalizedResult{Radiation: radiation, Attrs: attrs}
	if area, ok := attrs.Area(); ok {
		res.Area = area
	}
	if suit, ok := attrs.Suitability(); ok {
		res.Suitability = suit
	}
	res.RatedPower = normalizePower(attrs)
	return res
}

// fromProduction backs irradiance out of reported yearly production over a
// known positive roof area.
func fromProduction(attrs model.RawAttributes) (float64, bool) {
	production, ok := attrs.Production()
	if !ok {
		return 0, false
	}
	area, ok := attrs.Area()
	if !ok || area <= 0 {
		return 0, false
	}
	return production / (area * combinedFactor), true
}

// fromMonthly scales a monthly figure to a year, trusted only inside the
// plausibility window.
func fromMonthly(attrs model.RawAttributes) (float64, bool) {
	monthly, ok := attrs.MonthlyRadiation()
	if !ok {
		return 0, false
	}
	annual := monthly * 12
	return annual, plausible(annual)
}

// fromGeneral infers the unit of the raw radiation figure. Records mix
// already-annual kWh/m², Wh/m² and MJ/m² with no unit tag, so the raw value
// is tried as-is, then /1000, then /3.6.
func fromGeneral(attrs model.RawAttributes) (float64, bool) {
	raw, ok := attrs.Radiation()
	if !ok {
		return 0, false
	}
	for _, v := range [3]float64{raw, raw / 1000, raw / 3.6} {
		if plausible(v) {
			return v, true
		}
	}
	return 0, false
}

// fromAnything accepts whatever is on record, unchecked, so the chain always
// yields a number.
func fromAnything(attrs model.RawAttributes) (float64, bool) {
	if raw, ok := attrs.Radiation(); ok {
		return raw, true
	}
	if monthly, ok := attrs.MonthlyRadiation(); ok {
		return monthly * 12, true
	}
	return 0, true
}

func plausible(v float64) bool {
	return v > windowLow && v < windowHigh
}

// normalizePower treats rated-power readings above 1000 as watts and scales
// them to kW; anything else passes through.
func normalizePower(attrs model.RawAttributes) float64 {
	p, ok := attrs.RatedPower()
	if !ok {
		return 0
	}
	if p > 1000 {
		return p / 1000
	}
	return p
}
