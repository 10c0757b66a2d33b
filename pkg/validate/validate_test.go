package validate

import (
	"testing"

	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/extract"
	"github.com/gridsmith/sldgen/pkg/model"
	"github.com/gridsmith/sldgen/pkg/topology"
)

func runValidation(t *testing.T, rows *extract.Rows) Findings {
	t.Helper()
	snap, err := extract.Snapshot(rows)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	g := topology.Build(snap)
	return Run(snap, g, busbar.Resolve(snap, g, nil))
}

func TestNodeFindings(t *testing.T) {
	rows := &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", SubstationURI: "ss"}},
		Bays:          []extract.BayRow{{URI: "b1", VoltageLevelURI: "vl"}},
		Equipment: []extract.EquipmentRow{
			{URI: "d1", Type: "DIS", BayURI: "b1", SourceOrder: extract.Order(1)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
		},
		Nodes: []extract.NodeRow{{URI: "n-orphan"}, {URI: "n1"}},
	}

	findings := runValidation(t, rows)

	orphans := findings.ByCode(FindingOrphanNode)
	if len(orphans) != 1 || orphans[0].Subject != "n-orphan" {
		t.Errorf("orphan findings = %v, want one for n-orphan", orphans)
	}

	open := findings.ByCode(FindingOpenEnd)
	if len(open) != 1 || open[0].Subject != "n1" {
		t.Errorf("open-end findings = %v, want one for n1", open)
	}
}

func TestDisconnectedEquipmentFinding(t *testing.T) {
	// Explicit busbar on n1; x1 floats on its own nodes and shares no
	// connectivity node with anything else.
	rows := &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", SubstationURI: "ss"}},
		Bays: []extract.BayRow{
			{URI: "b0", Name: "BB", VoltageLevelURI: "vl"},
			{URI: "b1", Name: "D1", VoltageLevelURI: "vl"},
		},
		Equipment: []extract.EquipmentRow{
			{URI: "bb", Type: "BUSBAR", BayURI: "b0", SourceOrder: extract.Order(1)},
			{URI: "d1", Type: "DIS", BayURI: "b1", SourceOrder: extract.Order(2)},
			{URI: "x1", Name: "stray breaker", Type: "CBR", BayURI: "b1", SourceOrder: extract.Order(3)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t0", EquipmentURI: "bb", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t2", EquipmentURI: "d1", NodeURI: "n2", SourceOrder: extract.Order(2)},
			{URI: "t3", EquipmentURI: "x1", NodeURI: "n8", SourceOrder: extract.Order(1)},
			{URI: "t4", EquipmentURI: "x1", NodeURI: "n9", SourceOrder: extract.Order(2)},
		},
	}

	findings := runValidation(t, rows)

	disconnected := findings.ByCode(FindingDisconnectedEquipment)
	if len(disconnected) != 1 || disconnected[0].Subject != "x1" {
		t.Fatalf("disconnected findings = %v, want one for x1", disconnected)
	}

	// The busbar equipment itself is the membership target, never flagged.
	for _, f := range disconnected {
		if f.Subject == "bb" {
			t.Error("busbar equipment must not be flagged as disconnected")
		}
	}
}

func TestConnectedChainNotFlagged(t *testing.T) {
	// A healthy feeder chain hanging off an explicit busbar. Busbar
	// membership stops at the disconnector, but the breaker and the CT
	// share connectivity nodes with their neighbors and must not be
	// reported as disconnected.
	rows := &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", SubstationURI: "ss"}},
		Bays: []extract.BayRow{
			{URI: "b0", Name: "BB", VoltageLevelURI: "vl"},
			{URI: "b1", Name: "D1", VoltageLevelURI: "vl"},
		},
		Equipment: []extract.EquipmentRow{
			{URI: "bb", Type: "BUSBAR", BayURI: "b0", SourceOrder: extract.Order(1)},
			{URI: "d1", Type: "DIS", Subtype: "SA1", BayURI: "b1", SourceOrder: extract.Order(2)},
			{URI: "c1", Type: "CBR", BayURI: "b1", SourceOrder: extract.Order(3)},
			{URI: "m1", Type: "CTR", BayURI: "b1", SourceOrder: extract.Order(4)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t0", EquipmentURI: "bb", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t2", EquipmentURI: "d1", NodeURI: "n2", SourceOrder: extract.Order(2)},
			{URI: "t3", EquipmentURI: "c1", NodeURI: "n2", SourceOrder: extract.Order(1)},
			{URI: "t4", EquipmentURI: "c1", NodeURI: "n3", SourceOrder: extract.Order(2)},
			{URI: "t5", EquipmentURI: "m1", NodeURI: "n3", SourceOrder: extract.Order(1)},
		},
	}

	findings := runValidation(t, rows)
	if got := findings.ByCode(FindingDisconnectedEquipment); len(got) != 0 {
		t.Errorf("connected chain should have no disconnected findings, got %v", got)
	}
}

func TestEquipmentWithoutTerminals(t *testing.T) {
	rows := &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", SubstationURI: "ss"}},
		Bays:          []extract.BayRow{{URI: "b1", VoltageLevelURI: "vl"}},
		Equipment: []extract.EquipmentRow{
			{URI: "d1", Type: "DIS", BayURI: "b1", SourceOrder: extract.Order(1)},
			{URI: "d2", Type: "DIS", BayURI: "b1", SourceOrder: extract.Order(2)},
			{URI: "c1", Name: "floating breaker", Type: "CBR", BayURI: "b1", SourceOrder: extract.Order(3)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t2", EquipmentURI: "d1", NodeURI: "n2", SourceOrder: extract.Order(2)},
			{URI: "t3", EquipmentURI: "d2", NodeURI: "n2", SourceOrder: extract.Order(1)},
			{URI: "t4", EquipmentURI: "d2", NodeURI: "n3", SourceOrder: extract.Order(2)},
		},
	}

	findings := runValidation(t, rows)
	got := findings.ByCode(FindingDisconnectedEquipment)
	if len(got) != 1 || got[0].Subject != "c1" {
		t.Fatalf("disconnected findings = %v, want one for c1", got)
	}
	if got[0].Detail != "equipment floating breaker has no terminals" {
		t.Errorf("detail = %q", got[0].Detail)
	}
}

func TestBusbarConflictFinding(t *testing.T) {
	// The resolver never produces this shape, so the conflicting result
	// is constructed by hand.
	res := &busbar.Result{
		ByVoltageLevel: map[string]*busbar.Assignment{
			"vl": {
				VoltageLevelURI: "vl",
				Busbars: []*model.Busbar{
					{ID: "BB1", Nodes: []string{"n1"}},
					{ID: "BB2", Nodes: []string{"n1", "n2"}},
				},
			},
		},
	}

	snap := model.NewSnapshot()
	findings := Run(snap, topology.Build(snap), res)

	conflicts := findings.ByCode(FindingBusbarConflict)
	if len(conflicts) != 1 {
		t.Fatalf("conflict findings = %v, want 1", conflicts)
	}
	if conflicts[0].Subject != "n1" {
		t.Errorf("conflict subject = %s, want n1", conflicts[0].Subject)
	}
	if conflicts[0].Detail != "claimed by busbars BB1, BB2" {
		t.Errorf("conflict detail = %q", conflicts[0].Detail)
	}
}

func TestFindingsHelpers(t *testing.T) {
	f := Findings{
		{Code: FindingOpenEnd, Subject: "a"},
		{Code: FindingOrphanNode, Subject: "b"},
		{Code: FindingOpenEnd, Subject: "c"},
	}
	if f.Count() != 3 {
		t.Errorf("Count() = %d, want 3", f.Count())
	}
	open := f.ByCode(FindingOpenEnd)
	if len(open) != 2 || open[0].Subject != "a" || open[1].Subject != "c" {
		t.Errorf("ByCode should preserve order, got %v", open)
	}
}
