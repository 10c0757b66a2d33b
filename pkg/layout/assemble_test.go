package layout

import (
	"bytes"
	"testing"

	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/convention"
	"github.com/gridsmith/sldgen/pkg/extract"
	"github.com/gridsmith/sldgen/pkg/topology"
	"github.com/gridsmith/sldgen/pkg/validate"
)

// assembleRows runs the post-fetch pipeline stages over raw rows.
func assembleRows(t *testing.T, rows *extract.Rows) *Document {
	t.Helper()
	snap, err := extract.Snapshot(rows)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	g := topology.Build(snap)
	res := busbar.Resolve(snap, g, nil)
	findings := validate.Run(snap, g, res)
	conv, err := convention.Get("rte")
	if err != nil {
		t.Fatal(err)
	}
	return Assemble(snap, res, findings, conv)
}

func fixtureRows() *extract.Rows {
	return &extract.Rows{
		Substations: []extract.SubstationRow{{URI: "ss", Name: "Quimper"}},
		VoltageLevels: []extract.VoltageLevelRow{
			{URI: "vlA", Name: "E1", Voltage: "225kV", SubstationURI: "ss"},
			{URI: "vlB", Name: "E9", Voltage: "90kV", SubstationURI: "ss"},
			{URI: "vlC", Name: "E0", Voltage: "400", SubstationURI: "ss"},
		},
		Bays: []extract.BayRow{
			{URI: "b0", Name: "empty", VoltageLevelURI: "vlA"},
			{URI: "b1", Name: "D1", VoltageLevelURI: "vlA"},
			{URI: "bc", Name: "CBO", VoltageLevelURI: "vlA"},
			{URI: "be", Name: "bare", VoltageLevelURI: "vlB"},
			{URI: "b9", Name: "D9", VoltageLevelURI: "vlC"},
		},
		Equipment: []extract.EquipmentRow{
			{URI: "c1", Name: "CB", Type: "CBR", BayURI: "b1", SourceOrder: extract.Order(3)},
			{URI: "d1", Name: "SA", Type: "DIS", Subtype: "SA1", BayURI: "b1", SourceOrder: extract.Order(1)},
			{URI: "st1", Name: "ST", Type: "DIS", Subtype: "ST", BayURI: "b1", SourceOrder: extract.Order(2)},
			{URI: "dc", Name: "CPL", Type: "DIS", BayURI: "bc", SourceOrder: extract.Order(4)},
			{URI: "g1", Name: "GEN", Type: "GEN", BayURI: "b9", SourceOrder: extract.Order(5)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t2", EquipmentURI: "d1", NodeURI: "n2", SourceOrder: extract.Order(2)},
			{URI: "t3", EquipmentURI: "c1", NodeURI: "n2", SourceOrder: extract.Order(1)},
			{URI: "t4", EquipmentURI: "c1", NodeURI: "n3", SourceOrder: extract.Order(2)},
			{URI: "t5", EquipmentURI: "st1", NodeURI: "n3", SourceOrder: extract.Order(1)},
			{URI: "t6", EquipmentURI: "st1", NodeURI: "n4", SourceOrder: extract.Order(2)},
			{URI: "t7", EquipmentURI: "dc", NodeURI: "n1", SourceOrder: extract.Order(1)},
		},
	}
}

func TestAssemble(t *testing.T) {
	doc := assembleRows(t, fixtureRows())

	if doc.Generator != Generator {
		t.Errorf("Generator = %s, want %s", doc.Generator, Generator)
	}
	if len(doc.Substations) != 1 || doc.Substations[0].Name != "Quimper" {
		t.Fatalf("substations = %+v", doc.Substations)
	}

	// Voltage descending: 400 before 225; the equipment-less E9 is gone.
	levels := doc.Substations[0].VoltageLevels
	if len(levels) != 2 {
		t.Fatalf("got %d voltage levels, want 2", len(levels))
	}
	if levels[0].Name != "E0" || levels[1].Name != "E1" {
		t.Errorf("level order = [%s %s], want [E0 E1]", levels[0].Name, levels[1].Name)
	}

	// Coupling bay pinned left under the stock RTE convention.
	e1 := levels[1]
	if len(e1.Bays) != 2 {
		t.Fatalf("E1 has %d bays, want 2", len(e1.Bays))
	}
	if !e1.Bays[0].IsCoupling || e1.Bays[0].Name != "CBO" {
		t.Errorf("first bay = %+v, want the coupling bay", e1.Bays[0])
	}

	// (layer, source order) sorting with Order re-numbered from zero.
	eqs := e1.Bays[1].Equipments
	wantNames := []string{"SA", "CB", "ST"}
	for i, eq := range eqs {
		if eq.Name != wantNames[i] {
			t.Errorf("equipment[%d] = %s, want %s", i, eq.Name, wantNames[i])
		}
		if eq.Order != i {
			t.Errorf("equipment[%d].Order = %d, want %d", i, eq.Order, i)
		}
	}

	// Busbar provenance rides along for auditability.
	if len(e1.Busbars) != 1 || e1.Busbars[0].ID != "BB1_E1" {
		t.Fatalf("E1 busbars = %+v, want [BB1_E1]", e1.Busbars)
	}
	if e1.Busbars[0].Origin != "inferred-subtype" {
		t.Errorf("origin = %s, want inferred-subtype", e1.Busbars[0].Origin)
	}
	if levels[0].Busbars[0].Origin != "fallback-single" {
		t.Errorf("E0 origin = %s, want fallback-single", levels[0].Busbars[0].Origin)
	}
}

func TestAssembleStatistics(t *testing.T) {
	rows := fixtureRows()
	doc := assembleRows(t, rows)

	s := doc.Statistics
	if s.Substations != 1 || s.VoltageLevels != 2 || s.Bays != 3 || s.Equipments != 5 {
		t.Errorf("counts = %+v", s)
	}
	// E9's bare bay and E1's empty bay are both excluded; E9 itself too.
	if s.ExcludedBays != 2 {
		t.Errorf("ExcludedBays = %d, want 2", s.ExcludedBays)
	}
	if s.ExcludedVoltageLevels != 1 {
		t.Errorf("ExcludedVoltageLevels = %d, want 1", s.ExcludedVoltageLevels)
	}
	if s.TriplesExtracted != rows.Count() {
		t.Errorf("TriplesExtracted = %d, want %d", s.TriplesExtracted, rows.Count())
	}
	if s.FindingsCount == 0 {
		t.Error("fixture has open ends, FindingsCount should be non-zero")
	}
}

func TestAssembleCouplingOnlyLevelFiltered(t *testing.T) {
	rows := &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss", Name: "S"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", SubstationURI: "ss"}},
		Bays:          []extract.BayRow{{URI: "bc", Name: "CBO", VoltageLevelURI: "vl"}},
		Equipment: []extract.EquipmentRow{
			{URI: "dc", Type: "DIS", BayURI: "bc", SourceOrder: extract.Order(1)},
		},
	}

	doc := assembleRows(t, rows)
	if len(doc.Substations[0].VoltageLevels) != 0 {
		t.Error("a level with only coupling bays carries no diagram value")
	}
	if doc.Statistics.ExcludedVoltageLevels != 1 {
		t.Errorf("ExcludedVoltageLevels = %d, want 1", doc.Statistics.ExcludedVoltageLevels)
	}
}

func TestAssembleDeterminism(t *testing.T) {
	a, err := assembleRows(t, fixtureRows()).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b, err := assembleRows(t, fixtureRows()).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical input must serialize byte-identically")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := assembleRows(t, fixtureRows())
	data, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if back.Generator != doc.Generator || back.Statistics != doc.Statistics {
		t.Error("round trip lost document fields")
	}
}
