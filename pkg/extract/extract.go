// Package extract turns flat query rows from the triple store into the
// typed, URI-indexed snapshot the rest of the pipeline consumes.
//
// Extraction is the only stage that can fail a conversion run: a terminal
// referencing an equipment or connectivity node absent from the extraction
// is a hard input-contract violation (ErrCodeMalformedTopology), not a
// heuristic case. Everything downstream works on a consistent snapshot.
package extract

import (
	"strings"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/model"
)

// Rows is the raw result set of the four extraction queries, shaped after
// the SPARQL SELECT projections. It is JSON-serializable so snapshots can
// be captured to disk and replayed offline.
type Rows struct {
	Substations   []SubstationRow   `json:"substations"`
	VoltageLevels []VoltageLevelRow `json:"voltage_levels"`
	Bays          []BayRow          `json:"bays"`
	Equipment     []EquipmentRow    `json:"equipments"`
	Terminals     []TerminalRow     `json:"terminals"`

	// Nodes optionally lists connectivity nodes explicitly. When present it
	// is authoritative: a terminal referencing an unlisted node is
	// malformed, and listed nodes without terminals surface as orphan
	// findings. When empty, nodes are derived from terminal references.
	Nodes []NodeRow `json:"nodes,omitempty"`
}

// SubstationRow mirrors the (substationUri, name) projection.
type SubstationRow struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// VoltageLevelRow mirrors (voltageLevelUri, name, voltage?, substationUri).
type VoltageLevelRow struct {
	URI           string `json:"uri"`
	Name          string `json:"name"`
	Voltage       string `json:"voltage,omitempty"`
	SubstationURI string `json:"substation_uri"`
}

// BayRow mirrors (bayUri, name, isCoupling, voltageLevelUri).
type BayRow struct {
	URI             string `json:"uri"`
	Name            string `json:"name"`
	IsCoupling      bool   `json:"is_coupling,omitempty"`
	VoltageLevelURI string `json:"voltage_level_uri"`
}

// EquipmentRow mirrors (equipmentUri, type, subtype?, bayUri, sourceOrder).
// A nil SourceOrder means the source carried no order; the row index is
// used instead. An explicit zero is preserved.
type EquipmentRow struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Subtype     string `json:"subtype,omitempty"`
	BayURI      string `json:"bay_uri"`
	SourceOrder *int   `json:"source_order,omitempty"`
}

// TerminalRow mirrors (terminalUri, equipmentUri, connectivityNodeUri).
// SourceOrder follows the same nil-means-unset convention as EquipmentRow.
type TerminalRow struct {
	URI          string `json:"uri"`
	EquipmentURI string `json:"equipment_uri"`
	NodeURI      string `json:"connectivity_node_uri"`
	SourceOrder  *int   `json:"source_order,omitempty"`
}

// Order wraps a literal source order for building rows by hand.
func Order(n int) *int { return &n }

// NodeRow mirrors an explicit connectivity node listing.
type NodeRow struct {
	URI string `json:"uri"`
}

// Count returns the total number of source rows, reported in statistics.
func (r *Rows) Count() int {
	return len(r.Substations) + len(r.VoltageLevels) + len(r.Bays) +
		len(r.Equipment) + len(r.Terminals) + len(r.Nodes)
}

// Snapshot builds the immutable entity set from raw rows.
//
// Containment references (equipment→bay, bay→voltage level, voltage
// level→substation) and terminal references must resolve within the row
// set; any dangling reference aborts with ErrCodeMalformedTopology. Rows
// with an empty URI are skipped as noise, matching the original
// extractor's tolerance for partially-bound query results.
func Snapshot(rows *Rows) (*model.Snapshot, error) {
	snap := model.NewSnapshot()
	snap.RowCount = rows.Count()

	for i, row := range rows.Substations {
		if row.URI == "" {
			continue
		}
		if _, dup := snap.Substations[row.URI]; dup {
			continue
		}
		snap.Substations[row.URI] = &model.Substation{
			URI:         row.URI,
			Name:        row.Name,
			SourceOrder: i,
		}
		snap.SubstationURIs = append(snap.SubstationURIs, row.URI)
	}

	for i, row := range rows.VoltageLevels {
		if row.URI == "" {
			continue
		}
		parent, ok := snap.Substations[row.SubstationURI]
		if !ok {
			return nil, errors.New(errors.ErrCodeMalformedTopology,
				"voltage level %s references unknown substation %s", row.URI, row.SubstationURI)
		}
		if _, dup := snap.VoltageLevels[row.URI]; dup {
			continue
		}
		snap.VoltageLevels[row.URI] = &model.VoltageLevel{
			URI:           row.URI,
			Name:          row.Name,
			Voltage:       row.Voltage,
			SubstationURI: row.SubstationURI,
			SourceOrder:   i,
		}
		parent.VoltageLevelURIs = append(parent.VoltageLevelURIs, row.URI)
	}

	for _, row := range rows.Bays {
		if row.URI == "" {
			continue
		}
		parent, ok := snap.VoltageLevels[row.VoltageLevelURI]
		if !ok {
			return nil, errors.New(errors.ErrCodeMalformedTopology,
				"bay %s references unknown voltage level %s", row.URI, row.VoltageLevelURI)
		}
		if _, dup := snap.Bays[row.URI]; dup {
			continue
		}
		snap.Bays[row.URI] = &model.Bay{
			URI:             row.URI,
			Name:            row.Name,
			IsCoupling:      row.IsCoupling || looksLikeCouplingBay(row.Name),
			VoltageLevelURI: row.VoltageLevelURI,
		}
		parent.BayURIs = append(parent.BayURIs, row.URI)
	}

	for i, row := range rows.Equipment {
		if row.URI == "" {
			continue
		}
		bay, ok := snap.Bays[row.BayURI]
		if !ok {
			return nil, errors.New(errors.ErrCodeMalformedTopology,
				"equipment %s references unknown bay %s", row.URI, row.BayURI)
		}
		if _, dup := snap.Equipment[row.URI]; dup {
			continue
		}
		order := i
		if row.SourceOrder != nil {
			order = *row.SourceOrder
		}
		snap.Equipment[row.URI] = &model.Equipment{
			URI:         row.URI,
			Name:        row.Name,
			Type:        model.ParseEquipmentType(row.Type),
			Subtype:     strings.ToUpper(strings.TrimSpace(row.Subtype)),
			BayURI:      row.BayURI,
			SourceOrder: order,
		}
		bay.EquipmentURIs = append(bay.EquipmentURIs, row.URI)
	}

	explicitNodes := len(rows.Nodes) > 0
	for _, row := range rows.Nodes {
		if row.URI == "" {
			continue
		}
		snap.Nodes[row.URI] = &model.ConnectivityNode{URI: row.URI}
	}

	for i, row := range rows.Terminals {
		if row.URI == "" {
			continue
		}
		if _, ok := snap.Equipment[row.EquipmentURI]; !ok {
			return nil, errors.New(errors.ErrCodeMalformedTopology,
				"terminal %s references unknown equipment %s", row.URI, row.EquipmentURI)
		}
		if row.NodeURI == "" {
			return nil, errors.New(errors.ErrCodeMalformedTopology,
				"terminal %s has no connectivity node reference", row.URI)
		}
		if _, ok := snap.Nodes[row.NodeURI]; !ok {
			if explicitNodes {
				return nil, errors.New(errors.ErrCodeMalformedTopology,
					"terminal %s references unknown connectivity node %s", row.URI, row.NodeURI)
			}
			snap.Nodes[row.NodeURI] = &model.ConnectivityNode{URI: row.NodeURI}
		}
		if _, dup := snap.Terminals[row.URI]; dup {
			continue
		}
		order := i
		if row.SourceOrder != nil {
			order = *row.SourceOrder
		}
		snap.Terminals[row.URI] = &model.Terminal{
			URI:          row.URI,
			EquipmentURI: row.EquipmentURI,
			NodeURI:      row.NodeURI,
			SourceOrder:  order,
		}
	}

	return snap, nil
}

// looksLikeCouplingBay reports whether a bay name follows the RTE coupling
// naming convention (CBO, COUPL). Structural coupling detection, for bays
// that link busbars without the naming hint, happens in the resolver.
func looksLikeCouplingBay(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "CBO") || strings.Contains(upper, "COUPL")
}
