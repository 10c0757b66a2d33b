package layout

import (
	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/convention"
	"github.com/gridsmith/sldgen/pkg/model"
	"github.com/gridsmith/sldgen/pkg/validate"
)

// Assemble merges the resolved topology with the convention's ordering
// decisions into the final document.
//
// Filtering: bays with zero equipment and voltage levels with zero
// non-coupling bays carry no diagram value and are dropped from the
// output; the statistics record how many were excluded. Findings never
// remove resolved data.
func Assemble(snap *model.Snapshot, res *busbar.Result, findings validate.Findings, conv convention.Convention) *Document {
	doc := &Document{
		Substations: []Substation{},
		Generator:   Generator,
	}
	stats := Statistics{
		FindingsCount:    findings.Count(),
		TriplesExtracted: snap.RowCount,
	}

	for _, ssURI := range snap.SubstationURIs {
		ss := snap.Substations[ssURI]
		levels := make([]*model.VoltageLevel, 0, len(ss.VoltageLevelURIs))
		for _, vlURI := range ss.VoltageLevelURIs {
			if vl, ok := snap.VoltageLevels[vlURI]; ok {
				levels = append(levels, vl)
			}
		}

		out := Substation{Name: ss.Name, VoltageLevels: []VoltageLevel{}}
		for _, vl := range conv.BusbarVerticalOrder(levels) {
			vlOut, ok := assembleVoltageLevel(snap, res, conv, vl, &stats)
			if !ok {
				stats.ExcludedVoltageLevels++
				continue
			}
			out.VoltageLevels = append(out.VoltageLevels, vlOut)
			stats.VoltageLevels++
		}

		doc.Substations = append(doc.Substations, out)
		stats.Substations++
	}

	doc.Statistics = stats
	return doc
}

// assembleVoltageLevel builds one output voltage level. Returns ok=false
// when the level has no non-coupling bay with equipment.
func assembleVoltageLevel(snap *model.Snapshot, res *busbar.Result, conv convention.Convention, vl *model.VoltageLevel, stats *Statistics) (VoltageLevel, bool) {
	bays := make([]*model.Bay, 0, len(vl.BayURIs))
	for _, bayURI := range vl.BayURIs {
		if bay, ok := snap.Bays[bayURI]; ok {
			bays = append(bays, bay)
		}
	}

	out := VoltageLevel{
		Name:    vl.Name,
		Voltage: vl.Voltage,
		Busbars: []Busbar{},
		Bays:    []Bay{},
	}

	feederBays, equipments := 0, 0
	for _, bay := range conv.BayHorizontalOrder(bays) {
		bayOut, ok := assembleBay(snap, conv, bay)
		if !ok {
			stats.ExcludedBays++
			continue
		}
		out.Bays = append(out.Bays, bayOut)
		equipments += len(bayOut.Equipments)
		if !bay.IsCoupling {
			feederBays++
		}
	}
	if feederBays == 0 {
		return VoltageLevel{}, false
	}
	stats.Bays += len(out.Bays)
	stats.Equipments += equipments

	if asg := res.Assignment(vl.URI); asg != nil {
		for _, bb := range asg.Busbars {
			bbOut := Busbar{ID: bb.ID, Origin: string(bb.Origin)}
			for _, link := range asg.Links {
				if link.Busbars[0] != bb.ID && link.Busbars[1] != bb.ID {
					continue
				}
				bayName := link.BayURI
				if bay, ok := snap.Bays[link.BayURI]; ok {
					bayName = bay.Name
				}
				bbOut.Links = append(bbOut.Links, CouplingLink{
					Bay:     bayName,
					Busbars: link.Busbars,
					Origin:  string(link.Origin),
				})
			}
			out.Busbars = append(out.Busbars, bbOut)
		}
	}

	return out, true
}

// assembleBay builds one output bay with equipment in (layer, source
// order) display order. Returns ok=false for equipment-less bays.
func assembleBay(snap *model.Snapshot, conv convention.Convention, bay *model.Bay) (Bay, bool) {
	equipment := make([]*model.Equipment, 0, len(bay.EquipmentURIs))
	for _, eqURI := range bay.EquipmentURIs {
		if eq, ok := snap.Equipment[eqURI]; ok {
			equipment = append(equipment, eq)
		}
	}
	if len(equipment) == 0 {
		return Bay{}, false
	}

	out := Bay{
		Name:       bay.Name,
		IsCoupling: bay.IsCoupling,
		Equipments: make([]Equipment, 0, len(equipment)),
	}
	for i, eq := range convention.SortEquipment(conv, equipment) {
		out.Equipments = append(out.Equipments, Equipment{
			Name:    eq.Name,
			Type:    string(eq.Type),
			Subtype: eq.Subtype,
			Order:   i,
		})
	}
	return out, true
}
