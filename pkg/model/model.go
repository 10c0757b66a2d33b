package model

import (
	"slices"
	"strings"
)

// EquipmentType classifies a piece of conducting equipment as it appears in
// the source configuration (IEC 61850 SCL type codes).
type EquipmentType string

// Equipment types visible on a single line diagram.
const (
	TypeBusbar      EquipmentType = "BUSBAR" // explicit busbar section
	TypeBreaker     EquipmentType = "CBR"    // circuit breaker
	TypeDisconnect  EquipmentType = "DIS"    // disconnector
	TypeCurrentTr   EquipmentType = "CTR"    // current transformer
	TypeVoltageTr   EquipmentType = "VTR"    // voltage transformer
	TypePowerTr     EquipmentType = "PTR"    // power transformer
	TypeCapacitor   EquipmentType = "CAP"
	TypeReactor     EquipmentType = "REA"
	TypeGenerator   EquipmentType = "GEN"
	TypeBattery     EquipmentType = "BAT"
	TypeMotor       EquipmentType = "MOT"
	TypeOther       EquipmentType = "OTHER"
)

// knownTypes is the set of type codes extracted from source data.
// Anything else is normalized to TypeOther.
var knownTypes = map[EquipmentType]bool{
	TypeBusbar: true, TypeBreaker: true, TypeDisconnect: true,
	TypeCurrentTr: true, TypeVoltageTr: true, TypePowerTr: true,
	TypeCapacitor: true, TypeReactor: true, TypeGenerator: true,
	TypeBattery: true, TypeMotor: true,
}

// ParseEquipmentType normalizes a raw type string from the source data.
// Unknown or empty codes map to TypeOther.
func ParseEquipmentType(raw string) EquipmentType {
	t := EquipmentType(strings.ToUpper(strings.TrimSpace(raw)))
	if knownTypes[t] {
		return t
	}
	return TypeOther
}

// BusbarOrigin records which resolver level produced a busbar. The tag is
// part of the output contract so callers can audit how precise the
// reconstruction is.
type BusbarOrigin string

const (
	// OriginExplicit marks a busbar sourced from a BUSBAR equipment record.
	OriginExplicit BusbarOrigin = "explicit"
	// OriginInferredSubtype marks a virtual busbar synthesized from SA<n>
	// disconnector subtypes.
	OriginInferredSubtype BusbarOrigin = "inferred-subtype"
	// OriginInferredCoupling marks a link between two busbars derived from
	// a coupling bay. It annotates the link, never a busbar entity itself.
	OriginInferredCoupling BusbarOrigin = "inferred-coupling"
	// OriginFallbackSingle marks the least precise outcome: one synthetic
	// busbar covering an entire voltage level.
	OriginFallbackSingle BusbarOrigin = "fallback-single"
)

// Equipment is a piece of conducting equipment extracted from the source
// snapshot. Immutable once extracted.
type Equipment struct {
	URI         string        // unique identity
	Name        string        // display name
	Type        EquipmentType
	Subtype     string // RTE role for disconnectors (SA1, SL, ST, SS); empty otherwise
	BayURI      string // containing bay
	SourceOrder int    // document order, used for stable tie-breaks
}

// Terminal links one equipment to one connectivity node.
type Terminal struct {
	URI          string
	EquipmentURI string
	NodeURI      string // the ConnectivityNode this terminal lands on
	SourceOrder  int
}

// ConnectivityNode is an electrical connection point shared by the
// terminals referencing it. Degree is derived by the graph builder.
type ConnectivityNode struct {
	URI string
}

// Bay is a functional column of equipment within a voltage level.
type Bay struct {
	URI             string
	Name            string
	IsCoupling      bool // bay exists solely to link two busbars
	VoltageLevelURI string
	EquipmentURIs   []string // source order
}

// VoltageLevel groups bays under a substation. Voltage is the nominal
// voltage as a raw string ("400", "225kV"); empty when unspecified.
type VoltageLevel struct {
	URI           string
	Name          string
	Voltage       string
	SubstationURI string
	SourceOrder   int
	BayURIs       []string // source order
}

// Substation is the root of the containment tree.
type Substation struct {
	URI              string
	Name             string
	SourceOrder      int
	VoltageLevelURIs []string // source order
}

// Busbar is a conductor (explicit or inferred) that feeders within a
// voltage level connect to. Busbars never span voltage levels.
type Busbar struct {
	ID              string // equipment URI when explicit, synthesized otherwise
	VoltageLevelURI string
	Origin          BusbarOrigin
	Nodes           []string // member CN URIs, sorted
	EquipmentURIs   []string // attached equipment, sorted
}

// CouplingLink is an auditable fact that a coupling bay evidences a link
// between two busbars. The busbars stay distinct entities.
type CouplingLink struct {
	BayURI  string
	Busbars [2]string // linked busbar IDs, lexicographic order
	Origin  BusbarOrigin
}

// Snapshot is the full immutable entity set of one conversion run, indexed
// by URI. A new run produces an entirely new snapshot; nothing here is
// mutated after extraction.
type Snapshot struct {
	Equipment     map[string]*Equipment
	Terminals     map[string]*Terminal
	Nodes         map[string]*ConnectivityNode
	Bays          map[string]*Bay
	VoltageLevels map[string]*VoltageLevel
	Substations   map[string]*Substation

	// SubstationURIs preserves source document order of the roots.
	SubstationURIs []string

	// RowCount is the number of source rows the snapshot was built from,
	// reported in output statistics.
	RowCount int
}

// NewSnapshot returns an empty snapshot with all indices initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Equipment:     make(map[string]*Equipment),
		Terminals:     make(map[string]*Terminal),
		Nodes:         make(map[string]*ConnectivityNode),
		Bays:          make(map[string]*Bay),
		VoltageLevels: make(map[string]*VoltageLevel),
		Substations:   make(map[string]*Substation),
	}
}

// EquipmentInVoltageLevel returns the equipment contained in the voltage
// level, in source order. Bays missing from the index are skipped.
func (s *Snapshot) EquipmentInVoltageLevel(vlURI string) []*Equipment {
	vl, ok := s.VoltageLevels[vlURI]
	if !ok {
		return nil
	}
	var out []*Equipment
	for _, bayURI := range vl.BayURIs {
		bay, ok := s.Bays[bayURI]
		if !ok {
			continue
		}
		for _, eqURI := range bay.EquipmentURIs {
			if eq, ok := s.Equipment[eqURI]; ok {
				out = append(out, eq)
			}
		}
	}
	return out
}

// TerminalsOf returns the terminals of one equipment sorted by source
// order, ties broken by terminal URI.
func (s *Snapshot) TerminalsOf(eqURI string) []*Terminal {
	var out []*Terminal
	for _, t := range s.Terminals {
		if t.EquipmentURI == eqURI {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *Terminal) int {
		if a.SourceOrder != b.SourceOrder {
			return a.SourceOrder - b.SourceOrder
		}
		return strings.Compare(a.URI, b.URI)
	})
	return out
}

// SortedURIs returns the keys of a URI-keyed map in lexicographic order.
// Every deterministic traversal in the engine goes through this.
func SortedURIs[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
