/*
Package factory provides JSON to Go table conversion.

PURPOSE:
  Converts a JSON document into prescription.Tables. A shop can widen
  or tighten a numeric range, move the high-prescription alerts or pick
  the IPD policy without a code change. Every key is optional; anything
  left out keeps its built-in default.

JSON SCHEMA:
  {
    "ranges": {
      "sph":  {"min": -30, "max": 30, "step": 0.25},
      "cyl":  {"min": -10, "max": 10, "step": 0.25},
      "axis": {"min": 0,   "max": 180, "step": 1},
      "add":  {"min": 0,   "max": 4,  "step": 0.25},
      "pd":   {"min": 25,  "max": 40, "step": 0.5}
    },
    "sph_alert": {"min": -20, "max": 20},
    "cyl_alert": {"min": -6,  "max": 6},
    "ipd_policy": "live"
  }

USAGE:
  f := NewTablesFactory()
  tables, err := f.LoadFile("tables.json")

SEE ALSO:
  - prescription/tables.go: Tables type and defaults
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/generic"
	"github.com/warp/optical-engine/prescription"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TablesJSON is the JSON representation of the tables.
type TablesJSON struct {
	Ranges    map[string]RangeJSON `json:"ranges,omitempty"`
	SphAlert  *AlertJSON           `json:"sph_alert,omitempty"`
	CylAlert  *AlertJSON           `json:"cyl_alert,omitempty"`
	IPDPolicy string               `json:"ipd_policy,omitempty"`
}

// RangeJSON overrides one range. Missing bounds keep the default.
type RangeJSON struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

type AlertJSON struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// =============================================================================
// TABLES FACTORY
// =============================================================================

// TablesFactory converts JSON tables to prescription.Tables.
type TablesFactory struct {
	base prescription.Tables
}

// NewTablesFactory creates a factory layering overrides on DefaultTables.
func NewTablesFactory() *TablesFactory {
	return &TablesFactory{base: prescription.DefaultTables()}
}

// ParseTables parses a JSON string into Tables.
func (f *TablesFactory) ParseTables(jsonStr string) (prescription.Tables, error) {
	var tj TablesJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return prescription.Tables{}, fmt.Errorf("failed to parse tables JSON: %w", err)
	}
	return f.FromJSON(tj)
}

// LoadFile reads and parses a tables file.
func (f *TablesFactory) LoadFile(path string) (prescription.Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return prescription.Tables{}, fmt.Errorf("failed to read tables file: %w", err)
	}
	return f.ParseTables(string(data))
}

// FromJSON applies tj on top of the defaults and validates the result.
func (f *TablesFactory) FromJSON(tj TablesJSON) (prescription.Tables, error) {
	tables := f.base.Clone()

	for name, rj := range tj.Ranges {
		kind := prescription.FieldKind(name)
		current, ok := tables.Ranges[kind]
		if !ok {
			return prescription.Tables{}, fmt.Errorf("unknown range %q", name)
		}
		r := generic.Range{
			Min:  override(current.Min, rj.Min),
			Max:  override(current.Max, rj.Max),
			Step: override(current.Step, rj.Step),
		}
		if !r.Min.LessThan(r.Max) {
			return prescription.Tables{}, fmt.Errorf("range %q: min %s must be below max %s", name, r.Min, r.Max)
		}
		if !r.Step.IsPositive() {
			return prescription.Tables{}, fmt.Errorf("range %q: step must be positive", name)
		}
		tables.Ranges[kind] = r
	}

	var err error
	if tables.SphAlert, err = parseAlert("sph_alert", tables.SphAlert, tj.SphAlert); err != nil {
		return prescription.Tables{}, err
	}
	if tables.CylAlert, err = parseAlert("cyl_alert", tables.CylAlert, tj.CylAlert); err != nil {
		return prescription.Tables{}, err
	}

	if tj.IPDPolicy != "" {
		p := prescription.IPDPolicy(tj.IPDPolicy)
		if !p.Valid() {
			return prescription.Tables{}, fmt.Errorf("unknown ipd_policy %q", tj.IPDPolicy)
		}
		tables.IPDPolicy = p
	}
	return tables, nil
}

// ToJSON converts tables back to their JSON form, every key filled in.
func (f *TablesFactory) ToJSON(t prescription.Tables) TablesJSON {
	tj := TablesJSON{
		Ranges:    make(map[string]RangeJSON, len(prescription.Kinds)),
		SphAlert:  alertJSON(t.SphAlert),
		CylAlert:  alertJSON(t.CylAlert),
		IPDPolicy: string(t.IPDPolicy),
	}
	for _, kind := range prescription.Kinds {
		r := t.Range(kind)
		tj.Ranges[string(kind)] = RangeJSON{Min: floatPtr(r.Min), Max: floatPtr(r.Max), Step: floatPtr(r.Step)}
	}
	return tj
}

// =============================================================================
// HELPERS
// =============================================================================

func parseAlert(name string, current prescription.Alert, aj *AlertJSON) (prescription.Alert, error) {
	if aj == nil {
		return current, nil
	}
	a := prescription.Alert{Min: override(current.Min, aj.Min), Max: override(current.Max, aj.Max)}
	if !a.Min.LessThan(a.Max) {
		return current, fmt.Errorf("%s: min %s must be below max %s", name, a.Min, a.Max)
	}
	return a, nil
}

func alertJSON(a prescription.Alert) *AlertJSON {
	return &AlertJSON{Min: floatPtr(a.Min), Max: floatPtr(a.Max)}
}

func override(current decimal.Decimal, v *float64) decimal.Decimal {
	if v == nil {
		return current
	}
	return decimal.NewFromFloat(*v)
}

func floatPtr(d decimal.Decimal) *float64 {
	f, _ := d.Float64()
	return &f
}
