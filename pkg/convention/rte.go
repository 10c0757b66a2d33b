package convention

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gridsmith/sldgen/pkg/model"
)

// RTE is the French transmission operator drawing convention: horizontal
// busbars on top, bays stacked vertically below them (aiguillage
// disconnector, then breaker, then earthing disconnector, then
// measurement transformers, then the feeder terminal), coupling bays on
// the left edge.
type RTE struct {
	layers   map[string]int
	coupling Position
}

// defaultRTELayers is the standard vertical order for a feeder column.
// Keys are the equipment type, suffixed with the disconnector role for
// DIS (SA aiguillage, SL line, ST earth, SS sectioning).
var defaultRTELayers = map[string]int{
	"BUSBAR": 0,
	"DIS_SA": 1,
	"DIS_SL": 2,
	"CBR":    3,
	"DIS_ST": 4,
	"CTR":    5,
	"VTR":    5,
	"PTR":    6,
	"CAP":    6,
	"REA":    6,
	"GEN":    6,
	"BAT":    6,
	"MOT":    6,
}

// NewRTE builds the RTE convention. Layer overrides (keyed like
// defaultRTELayers) and a coupling position replace the defaults when
// non-empty.
func NewRTE(layerOverrides map[string]int, coupling Position) *RTE {
	layers := make(map[string]int, len(defaultRTELayers))
	for k, v := range defaultRTELayers {
		layers[k] = v
	}
	for k, v := range layerOverrides {
		layers[strings.ToUpper(k)] = v
	}
	if coupling == "" {
		coupling = PositionLeft
	}
	return &RTE{layers: layers, coupling: coupling}
}

func init() {
	Register(NewRTE(nil, PositionLeft))
}

// Name implements Convention.
func (r *RTE) Name() string { return "rte" }

// EquipmentLayer implements Convention. Disconnectors are keyed by their
// role with the trailing busbar number stripped (SA1 and SA2 share the
// SA layer); unknown types sort to LayerUndefined.
func (r *RTE) EquipmentLayer(t model.EquipmentType, subtype string) int {
	key := string(t)
	if t == model.TypeDisconnect && subtype != "" {
		key = key + "_" + strings.TrimRight(subtype, "0123456789")
	}
	if layer, ok := r.layers[key]; ok {
		return layer
	}
	return LayerUndefined
}

// BusbarVerticalOrder implements Convention: nominal voltage descending,
// ties broken by source order. Levels without a parseable voltage sort
// below all levels with one.
func (r *RTE) BusbarVerticalOrder(levels []*model.VoltageLevel) []*model.VoltageLevel {
	out := make([]*model.VoltageLevel, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		vi, oki := parseVoltage(out[i].Voltage)
		vj, okj := parseVoltage(out[j].Voltage)
		if oki != okj {
			return oki
		}
		if oki && okj && vi != vj {
			return vi > vj
		}
		return out[i].SourceOrder < out[j].SourceOrder
	})
	return out
}

// CouplingBayPosition implements Convention.
func (r *RTE) CouplingBayPosition() Position { return r.coupling }

// BayHorizontalOrder implements Convention: stable source order with
// coupling bays pinned to the configured edge.
func (r *RTE) BayHorizontalOrder(bays []*model.Bay) []*model.Bay {
	if r.coupling == PositionInline {
		out := make([]*model.Bay, len(bays))
		copy(out, bays)
		return out
	}

	var coupling, feeders []*model.Bay
	for _, bay := range bays {
		if bay.IsCoupling {
			coupling = append(coupling, bay)
		} else {
			feeders = append(feeders, bay)
		}
	}
	if r.coupling == PositionRight {
		return append(feeders, coupling...)
	}
	return append(coupling, feeders...)
}

// parseVoltage extracts a numeric value from a nominal voltage string
// ("400", "225kV", "63 kV"). Returns false when nothing numeric leads.
func parseVoltage(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
