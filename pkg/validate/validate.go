// Package validate runs a read-only completeness pass over the resolved
// topology and produces findings. Findings never abort the pipeline; they
// ride along with the output for the caller to display or log.
package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/model"
	"github.com/gridsmith/sldgen/pkg/topology"
)

// FindingCode identifies a category of topology anomaly.
type FindingCode string

const (
	// FindingDisconnectedEquipment flags equipment with no resolvable
	// connection: no terminals at all, or no connectivity node shared with
	// any other equipment. The equipment stays in its bay either way.
	FindingDisconnectedEquipment FindingCode = "disconnected-equipment"
	// FindingOrphanNode flags a connectivity node with no terminals.
	FindingOrphanNode FindingCode = "orphan-connectivity-node"
	// FindingOpenEnd flags a degree-1 node. Informational only; open ends
	// are normal at feeder boundaries.
	FindingOpenEnd FindingCode = "open-end"
	// FindingBusbarConflict flags a node claimed by two busbars. The
	// resolver makes this structurally impossible; it is still checked
	// and surfaced rather than silently dropped.
	FindingBusbarConflict FindingCode = "busbar-conflict"
)

// Finding is one recorded anomaly. Subject is the URI of the entity the
// finding is about.
type Finding struct {
	Code    FindingCode `json:"code"`
	Subject string      `json:"subject"`
	Detail  string      `json:"detail,omitempty"`
}

// Findings is the ordered findings list of one run.
type Findings []Finding

// Count returns the number of findings.
func (f Findings) Count() int { return len(f) }

// ByCode returns the findings with the given code, preserving order.
func (f Findings) ByCode(code FindingCode) Findings {
	var out Findings
	for _, fd := range f {
		if fd.Code == code {
			out = append(out, fd)
		}
	}
	return out
}

// Run checks the resolved graph and returns findings in deterministic
// order (by code category, then subject URI). It mutates nothing.
func Run(snap *model.Snapshot, g *topology.Graph, res *busbar.Result) Findings {
	var out Findings
	out = append(out, nodeFindings(g)...)
	out = append(out, equipmentFindings(snap, g)...)
	out = append(out, conflictFindings(snap, res)...)
	return out
}

// nodeFindings reports orphan (degree 0) and open-end (degree 1) nodes.
func nodeFindings(g *topology.Graph) Findings {
	var out Findings
	for _, uri := range g.NodeURIs() {
		switch g.Degree(uri) {
		case 0:
			out = append(out, Finding{
				Code:    FindingOrphanNode,
				Subject: uri,
				Detail:  "connectivity node has no terminals",
			})
		case 1:
			out = append(out, Finding{
				Code:    FindingOpenEnd,
				Subject: uri,
				Detail:  "connectivity node has a single terminal",
			})
		}
	}
	return out
}

// equipmentFindings reports equipment with no resolvable connection:
// either no terminals at all, or terminals whose connectivity nodes
// reach no other equipment. Busbar membership is not consulted; under
// the explicit and subtype levels membership stops at the busbar-facing
// disconnectors, and equipment further down a healthy bay chain still
// shares nodes with its neighbors.
func equipmentFindings(snap *model.Snapshot, g *topology.Graph) Findings {
	var out Findings
	for _, eqURI := range model.SortedURIs(snap.Equipment) {
		eq := snap.Equipment[eqURI]
		if eq.Type == model.TypeBusbar {
			continue // busbars are the membership targets, not members
		}

		nodes := g.NodesOf(eqURI)
		if len(nodes) == 0 {
			out = append(out, Finding{
				Code:    FindingDisconnectedEquipment,
				Subject: eqURI,
				Detail:  fmt.Sprintf("equipment %s has no terminals", eq.Name),
			})
			continue
		}

		connected := false
		for _, cn := range nodes {
			if len(g.EquipmentOn(cn)) > 1 {
				connected = true
				break
			}
		}
		if !connected {
			out = append(out, Finding{
				Code:    FindingDisconnectedEquipment,
				Subject: eqURI,
				Detail:  fmt.Sprintf("equipment %s shares no connectivity node with other equipment", eq.Name),
			})
		}
	}
	return out
}

// conflictFindings re-checks busbar membership exclusivity by recomputing
// node claims from the busbar entities themselves.
func conflictFindings(snap *model.Snapshot, res *busbar.Result) Findings {
	var out Findings
	for _, vlURI := range model.SortedURIs(res.ByVoltageLevel) {
		claims := make(map[string][]string)
		for _, bb := range res.ByVoltageLevel[vlURI].Busbars {
			for _, cn := range bb.Nodes {
				claims[cn] = append(claims[cn], bb.ID)
			}
		}
		for _, cn := range model.SortedURIs(claims) {
			ids := claims[cn]
			if len(ids) < 2 {
				continue
			}
			slices.Sort(ids)
			out = append(out, Finding{
				Code:    FindingBusbarConflict,
				Subject: cn,
				Detail:  "claimed by busbars " + strings.Join(ids, ", "),
			})
		}
	}
	return out
}
