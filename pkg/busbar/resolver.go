// Package busbar reconstructs busbar membership from the connectivity
// graph using a cascade of four heuristics, from most to least precise:
//
//	level 1  explicit BUSBAR equipment
//	level 2  SA<n> disconnector subtype inference
//	level 3  coupling-bay link annotation
//	level 4  single fallback busbar per voltage level
//
// Levels run strictly in order per voltage level; the first level that
// assigns busbars wins for that voltage level and later levels are
// skipped (level 3 only annotates level 2 results, it never creates
// busbars). Every outcome carries a provenance tag so callers can audit
// how precise the reconstruction is. The cascade is deterministic: ties
// are broken by lexicographic URI order, never by map iteration.
package busbar

import (
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/gridsmith/sldgen/pkg/model"
	"github.com/gridsmith/sldgen/pkg/topology"
)

// Resolver levels, recorded on each assignment for auditability.
const (
	LevelExplicit = 1
	LevelSubtype  = 2
	LevelCoupling = 3
	LevelFallback = 4
)

// saSubtype matches the aiguillage disconnector subtype pattern SA<n>.
var saSubtype = regexp.MustCompile(`^SA(\d+)$`)

// Assignment is the resolver output for one voltage level: the busbars
// with provenance, the CN membership map (mutually exclusive within the
// level), and any coupling-bay link annotations.
type Assignment struct {
	VoltageLevelURI string
	Level           int
	Busbars         []*model.Busbar   // sorted by ID
	Membership      map[string]string // CN URI -> busbar ID
	Links           []model.CouplingLink
}

// Busbar returns the busbar with the given ID, or nil.
func (a *Assignment) Busbar(id string) *model.Busbar {
	for _, bb := range a.Busbars {
		if bb.ID == id {
			return bb
		}
	}
	return nil
}

// Result maps voltage level URIs to their assignments. Voltage levels
// with no equipment produce no assignment.
type Result struct {
	ByVoltageLevel map[string]*Assignment
}

// Resolve runs the cascade over every voltage level of the snapshot.
// The input snapshot and graph are read-only; a nil logger discards logs.
func Resolve(snap *model.Snapshot, g *topology.Graph, logger *log.Logger) *Result {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	res := &Result{ByVoltageLevel: make(map[string]*Assignment)}

	for _, vlURI := range model.SortedURIs(snap.VoltageLevels) {
		vl := snap.VoltageLevels[vlURI]
		equipment := snap.EquipmentInVoltageLevel(vlURI)
		if len(equipment) == 0 {
			continue
		}

		asg := resolveExplicit(snap, g, vl, equipment)
		if asg == nil {
			asg = resolveSubtype(snap, g, vl, equipment)
			if asg != nil {
				annotateCouplingLinks(snap, g, vl, asg)
			}
		}
		if asg == nil {
			asg = resolveFallback(g, vl, equipment)
		}

		logger.Debug("resolved busbars",
			"voltage_level", vl.Name,
			"level", asg.Level,
			"busbars", len(asg.Busbars),
			"links", len(asg.Links))

		res.ByVoltageLevel[vlURI] = asg
	}

	return res
}

// Assignment returns the assignment for a voltage level, or nil.
func (r *Result) Assignment(vlURI string) *Assignment {
	return r.ByVoltageLevel[vlURI]
}

// BusbarOf returns the busbar ID a connectivity node belongs to within
// the given voltage level, or "" when unassigned.
func (r *Result) BusbarOf(vlURI, nodeURI string) string {
	asg := r.ByVoltageLevel[vlURI]
	if asg == nil {
		return ""
	}
	return asg.Membership[nodeURI]
}

// resolveExplicit implements level 1. One busbar per BUSBAR equipment in
// the voltage level; its terminals' CNs seed membership, and the closure
// extends transitively through CNs of other explicit busbars reached from
// the seed. CN claims are first-wins in lexicographic busbar order, so a
// CN shared by two explicit busbars stays with the lexicographically
// smaller one rather than being merged.
func resolveExplicit(snap *model.Snapshot, g *topology.Graph, vl *model.VoltageLevel, equipment []*model.Equipment) *Assignment {
	var barURIs []string
	for _, eq := range equipment {
		if eq.Type == model.TypeBusbar {
			barURIs = append(barURIs, eq.URI)
		}
	}
	if len(barURIs) == 0 {
		return nil
	}
	slices.Sort(barURIs)

	asg := &Assignment{
		VoltageLevelURI: vl.URI,
		Level:           LevelExplicit,
		Membership:      make(map[string]string),
	}

	for _, barURI := range barURIs {
		bb := &model.Busbar{
			ID:              barURI,
			VoltageLevelURI: vl.URI,
			Origin:          model.OriginExplicit,
		}

		// BFS over CNs, expanding through other explicit-busbar terminals.
		queue := slices.Clone(g.NodesOf(barURI))
		seen := make(map[string]bool)
		for len(queue) > 0 {
			cn := queue[0]
			queue = queue[1:]
			if seen[cn] {
				continue
			}
			seen[cn] = true
			if _, claimed := asg.Membership[cn]; claimed {
				continue
			}
			asg.Membership[cn] = bb.ID
			bb.Nodes = append(bb.Nodes, cn)
			for _, eqURI := range g.EquipmentOn(cn) {
				if eqURI == barURI {
					continue
				}
				eq := snap.Equipment[eqURI]
				if eq == nil {
					continue
				}
				if eq.Type == model.TypeBusbar {
					queue = append(queue, g.NodesOf(eqURI)...)
					continue
				}
				bb.EquipmentURIs = appendSortedUnique(bb.EquipmentURIs, eqURI)
			}
		}

		slices.Sort(bb.Nodes)
		asg.Busbars = append(asg.Busbars, bb)
	}

	return asg
}

// resolveSubtype implements level 2. Each distinct <n> observed in SA<n>
// disconnector subtypes yields one virtual busbar BB<n>_<voltage level>;
// the CN on the busbar-facing terminal of each SA<n> disconnector (the
// lowest document-order edge) seeds its membership. Returns nil when no
// SA disconnector carries a resolvable terminal, letting the voltage
// level fall through to level 4 instead of producing empty busbars.
func resolveSubtype(snap *model.Snapshot, g *topology.Graph, vl *model.VoltageLevel, equipment []*model.Equipment) *Assignment {
	// Group SA disconnectors by busbar number.
	groups := make(map[int][]string)
	for _, eq := range equipment {
		if eq.Type != model.TypeDisconnect {
			continue
		}
		m := saSubtype.FindStringSubmatch(eq.Subtype)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		groups[n] = append(groups[n], eq.URI)
	}
	if len(groups) == 0 {
		return nil
	}

	numbers := make([]int, 0, len(groups))
	for n := range groups {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	asg := &Assignment{
		VoltageLevelURI: vl.URI,
		Level:           LevelSubtype,
		Membership:      make(map[string]string),
	}

	for _, n := range numbers {
		bb := &model.Busbar{
			ID:              fmt.Sprintf("BB%d_%s", n, vlLabel(vl)),
			VoltageLevelURI: vl.URI,
			Origin:          model.OriginInferredSubtype,
		}

		saURIs := groups[n]
		slices.Sort(saURIs)
		for _, saURI := range saURIs {
			edges := g.EdgesOf(saURI)
			if len(edges) == 0 {
				continue
			}
			cn := edges[0].NodeURI // busbar-facing side
			if _, claimed := asg.Membership[cn]; claimed {
				continue
			}
			asg.Membership[cn] = bb.ID
			bb.Nodes = appendSortedUnique(bb.Nodes, cn)
		}

		if len(bb.Nodes) == 0 {
			continue
		}
		for _, cn := range bb.Nodes {
			for _, eqURI := range g.EquipmentOn(cn) {
				bb.EquipmentURIs = appendSortedUnique(bb.EquipmentURIs, eqURI)
			}
		}
		asg.Busbars = append(asg.Busbars, bb)
	}

	if len(asg.Busbars) == 0 {
		return nil
	}
	return asg
}

// annotateCouplingLinks implements level 3. When level 2 produced at
// least two busbars that sit in different connected components, coupling
// bays touching exactly two of them are recorded as link annotations.
// Membership is never merged; the link is an auditable fact only.
func annotateCouplingLinks(snap *model.Snapshot, g *topology.Graph, vl *model.VoltageLevel, asg *Assignment) {
	if len(asg.Busbars) < 2 {
		return
	}
	if !anyDisconnected(g, vl.URI, asg) {
		return
	}

	for _, bayURI := range vl.BayURIs {
		bay := snap.Bays[bayURI]
		if bay == nil {
			continue
		}
		if !bay.IsCoupling && !structurallyCoupling(snap, g, bay) {
			continue
		}

		touched := touchedBusbars(snap, g, bay, asg)
		if len(touched) != 2 {
			continue
		}
		asg.Links = append(asg.Links, model.CouplingLink{
			BayURI:  bayURI,
			Busbars: [2]string{touched[0], touched[1]},
			Origin:  model.OriginInferredCoupling,
		})
	}
}

// anyDisconnected reports whether at least two busbars of the assignment
// live in different connected components of the voltage level graph.
func anyDisconnected(g *topology.Graph, vlURI string, asg *Assignment) bool {
	components := g.Components(vlURI)
	componentOf := make(map[string]int)
	for i, comp := range components {
		for _, cn := range comp {
			componentOf[cn] = i
		}
	}

	first := -1
	for _, bb := range asg.Busbars {
		if len(bb.Nodes) == 0 {
			continue
		}
		comp, ok := componentOf[bb.Nodes[0]]
		if !ok {
			continue
		}
		if first == -1 {
			first = comp
			continue
		}
		if comp != first {
			return true
		}
	}
	return false
}

// structurallyCoupling detects a coupling bay without the naming hint:
// exactly one breaker plus disconnectors, with no feeder-side terminal
// (no open-end CN among the bay's equipment).
func structurallyCoupling(snap *model.Snapshot, g *topology.Graph, bay *model.Bay) bool {
	if len(bay.EquipmentURIs) == 0 {
		return false
	}
	breakers := 0
	for _, eqURI := range bay.EquipmentURIs {
		eq := snap.Equipment[eqURI]
		if eq == nil {
			return false
		}
		switch eq.Type {
		case model.TypeBreaker:
			breakers++
		case model.TypeDisconnect:
		default:
			return false
		}
		for _, cn := range g.NodesOf(eqURI) {
			if g.Degree(cn) == 1 {
				return false // open end = feeder side
			}
		}
	}
	return breakers == 1
}

// touchedBusbars returns the sorted busbar IDs whose membership CNs are
// adjacent to the bay's equipment.
func touchedBusbars(snap *model.Snapshot, g *topology.Graph, bay *model.Bay, asg *Assignment) []string {
	var out []string
	for _, eqURI := range bay.EquipmentURIs {
		for _, cn := range g.NodesOf(eqURI) {
			if id, ok := asg.Membership[cn]; ok {
				out = appendSortedUnique(out, id)
			}
		}
	}
	return out
}

// resolveFallback implements level 4: a single synthetic busbar covering
// the whole voltage level, every equipment attached.
func resolveFallback(g *topology.Graph, vl *model.VoltageLevel, equipment []*model.Equipment) *Assignment {
	bb := &model.Busbar{
		ID:              "BB_" + vlLabel(vl),
		VoltageLevelURI: vl.URI,
		Origin:          model.OriginFallbackSingle,
	}

	asg := &Assignment{
		VoltageLevelURI: vl.URI,
		Level:           LevelFallback,
		Membership:      make(map[string]string),
	}

	for _, eq := range equipment {
		bb.EquipmentURIs = appendSortedUnique(bb.EquipmentURIs, eq.URI)
		for _, cn := range g.NodesOf(eq.URI) {
			if _, claimed := asg.Membership[cn]; claimed {
				continue
			}
			asg.Membership[cn] = bb.ID
			bb.Nodes = appendSortedUnique(bb.Nodes, cn)
		}
	}

	asg.Busbars = []*model.Busbar{bb}
	return asg
}

// vlLabel names virtual busbars after the voltage level. Falls back to
// the URI when the level has no display name.
func vlLabel(vl *model.VoltageLevel) string {
	if vl.Name != "" {
		return vl.Name
	}
	return vl.URI
}

// appendSortedUnique inserts a value into a sorted slice if absent.
func appendSortedUnique(list []string, v string) []string {
	i, found := slices.BinarySearch(list, v)
	if found {
		return list
	}
	return slices.Insert(list, i, v)
}
