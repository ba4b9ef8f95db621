package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ordered key aliases for the logical fields the selector and normalizer
// understand. The rooftop cadastre layer reports German field names; the
// generic fallbacks cover layers proxied from other sources.
var (
	areaKeys        = []string{"flaeche", "area"}
	productionKeys  = []string{"stromertrag", "production"}
	monthlyKeys     = []string{"mstrahlung", "monthly_radiation"}
	radiationKeys   = []string{"gstrahlung", "radiation"}
	powerKeys       = []string{"leistung", "rated_power"}
	suitabilityKeys = []string{"klasse_text", "klasse", "suitability"}
	buildingIDKeys  = []string{"gwr_egid", "building_id"}
	objectIDKeys    = []string{"objectid", "object_id"}
	genericIDKeys   = []string{"featureId", "id"}
	labelKeys       = []string{"label", "bezeichnung"}
)

// RawAttributes is the attribute payload of one feature record. It is passed
// through opaquely apart from the typed accessors below; the service does not
// guarantee types, so numbers may arrive as JSON numbers or strings.
type RawAttributes map[string]any

// Float probes keys in order and returns the first value coercible to float64.
func (a RawAttributes) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := a[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Text probes keys in order and returns the first non-empty string form.
// Numeric identifiers are rendered without an exponent so they stay stable
// as map keys.
func (a RawAttributes) Text(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := a[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case json.Number:
			return s.String(), true
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), true
		case int:
			return strconv.Itoa(s), true
		case int64:
			return strconv.FormatInt(s, 10), true
		}
	}
	return "", false
}

func (a RawAttributes) Area() (float64, bool)             { return a.Float(areaKeys...) }
func (a RawAttributes) Production() (float64, bool)       { return a.Float(productionKeys...) }
func (a RawAttributes) MonthlyRadiation() (float64, bool) { return a.Float(monthlyKeys...) }
func (a RawAttributes) Radiation() (float64, bool)        { return a.Float(radiationKeys...) }
func (a RawAttributes) RatedPower() (float64, bool)       { return a.Float(powerKeys...) }
func (a RawAttributes) Suitability() (string, bool)       { return a.Text(suitabilityKeys...) }

// IdentityKey returns a stable dedup key for grouping duplicate feature
// records: building id, object id, generic id, label, then the full
// serialized attribute set. Prefixes keep keys from different fields from
// colliding.
func (a RawAttributes) IdentityKey() string {
	if s, ok := a.Text(buildingIDKeys...); ok {
		return "bldg:" + s
	}
	if s, ok := a.Text(objectIDKeys...); ok {
		return "obj:" + s
	}
	if s, ok := a.Text(genericIDKeys...); ok {
		return "id:" + s
	}
	if s, ok := a.Text(labelKeys...); ok {
		return "label:" + s
	}
	return "attrs:" + a.serialize()
}

func (a RawAttributes) serialize() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%s=%v", k, a[k])
	}
	return sb.String()
}
