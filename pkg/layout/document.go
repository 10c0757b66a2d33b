// Package layout assembles the resolved topology and the convention's
// ordering decisions into the hierarchical document handed to the
// rendering layer.
package layout

import (
	"bytes"
	"encoding/json"
)

// Generator identifies the document producer in the output contract.
const Generator = "component-based"

// Document is the JSON-serializable layout handed to the renderer.
// All slices are emitted in their final display order; serializing the
// same resolved topology twice produces byte-identical output.
type Document struct {
	Substations []Substation `json:"substations"`
	Statistics  Statistics   `json:"statistics"`
	Generator   string       `json:"generator"`
}

// Substation is one substation with its voltage levels in vertical
// stacking order.
type Substation struct {
	Name          string         `json:"name"`
	VoltageLevels []VoltageLevel `json:"voltage_levels"`
}

// VoltageLevel carries its busbars (with provenance) and bays in
// horizontal order.
type VoltageLevel struct {
	Name    string   `json:"name"`
	Voltage string   `json:"voltage,omitempty"`
	Busbars []Busbar `json:"busbars"`
	Bays    []Bay    `json:"bays"`
}

// Busbar is the audit view of one resolved busbar.
type Busbar struct {
	ID     string         `json:"id"`
	Origin string         `json:"origin"`
	Links  []CouplingLink `json:"links,omitempty"`
}

// CouplingLink records that a coupling bay evidences a link between two
// busbars (which remain distinct entities).
type CouplingLink struct {
	Bay     string    `json:"bay"`
	Busbars [2]string `json:"busbars"`
	Origin  string    `json:"origin"`
}

// Bay is one ordered feeder or coupling column.
type Bay struct {
	Name       string      `json:"name"`
	IsCoupling bool        `json:"is_coupling"`
	Equipments []Equipment `json:"equipments"`
}

// Equipment is one positioned equipment. Order is the computed vertical
// position within the bay after (layer, source order) sorting.
type Equipment struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
	Order   int    `json:"order"`
}

// Statistics summarizes the run for observability. Excluded counts cover
// entities filtered from the output for carrying no diagram value.
type Statistics struct {
	Substations           int `json:"substations"`
	VoltageLevels         int `json:"voltage_levels"`
	Bays                  int `json:"bays"`
	Equipments            int `json:"equipments"`
	FindingsCount         int `json:"findings_count"`
	TriplesExtracted      int `json:"triples_extracted"`
	ExcludedVoltageLevels int `json:"excluded_voltage_levels,omitempty"`
	ExcludedBays          int `json:"excluded_bays,omitempty"`
}

// Marshal serializes the document as indented JSON. Output is
// deterministic: the document contains no maps.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a document from JSON bytes.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
