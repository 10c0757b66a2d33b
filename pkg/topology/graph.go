// Package topology builds the undirected bipartite connectivity graph of
// conducting equipment and connectivity nodes, with terminal records as
// edges. Two equipment pieces are electrically adjacent iff they share a
// connectivity node.
//
// The graph performs no inference; it is the sole input to the busbar
// resolver and supplies node degrees to the validator.
package topology

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gridsmith/sldgen/pkg/model"
)

// Edge is one terminal viewed as a graph edge between an equipment and a
// connectivity node. Derived during construction, never stored on entities.
type Edge struct {
	EquipmentURI string
	NodeURI      string
	SourceOrder  int
}

// Graph is the bipartite adjacency structure over one snapshot.
// Immutable after Build.
type Graph struct {
	snap *model.Snapshot

	equipmentOn map[string][]string // CN URI -> equipment URIs, sorted unique
	nodesOf     map[string][]string // equipment URI -> CN URIs, sorted unique
	degree      map[string]int      // CN URI -> terminal count (electrical degree)
	edgesOf     map[string][]Edge   // equipment URI -> edges by source order
}

// Build constructs the connectivity graph from a snapshot. Terminals are
// visited in sorted order so adjacency lists are deterministic.
func Build(snap *model.Snapshot) *Graph {
	g := &Graph{
		snap:        snap,
		equipmentOn: make(map[string][]string),
		nodesOf:     make(map[string][]string),
		degree:      make(map[string]int),
		edgesOf:     make(map[string][]Edge),
	}

	// Every known node gets a degree entry so orphans (degree 0) are
	// visible to the validator.
	for uri := range snap.Nodes {
		g.degree[uri] = 0
	}

	for _, tURI := range model.SortedURIs(snap.Terminals) {
		t := snap.Terminals[tURI]
		g.degree[t.NodeURI]++
		g.equipmentOn[t.NodeURI] = appendUnique(g.equipmentOn[t.NodeURI], t.EquipmentURI)
		g.nodesOf[t.EquipmentURI] = appendUnique(g.nodesOf[t.EquipmentURI], t.NodeURI)
		g.edgesOf[t.EquipmentURI] = append(g.edgesOf[t.EquipmentURI], Edge{
			EquipmentURI: t.EquipmentURI,
			NodeURI:      t.NodeURI,
			SourceOrder:  t.SourceOrder,
		})
	}

	for uri := range g.edgesOf {
		slices.SortFunc(g.edgesOf[uri], func(a, b Edge) int {
			if a.SourceOrder != b.SourceOrder {
				return a.SourceOrder - b.SourceOrder
			}
			return strings.Compare(a.NodeURI, b.NodeURI)
		})
	}

	return g
}

// appendUnique inserts a value into a sorted slice if absent.
func appendUnique(list []string, v string) []string {
	i, found := slices.BinarySearch(list, v)
	if found {
		return list
	}
	return slices.Insert(list, i, v)
}

// EquipmentOn returns the equipment terminating on the node, sorted.
func (g *Graph) EquipmentOn(nodeURI string) []string { return g.equipmentOn[nodeURI] }

// NodesOf returns the connectivity nodes the equipment terminates on, sorted.
func (g *Graph) NodesOf(equipmentURI string) []string { return g.nodesOf[equipmentURI] }

// EdgesOf returns the equipment's edges ordered by terminal source order.
// The first edge is the lowest document-order edge, which the resolver
// treats as the busbar-facing side of an SA disconnector.
func (g *Graph) EdgesOf(equipmentURI string) []Edge { return g.edgesOf[equipmentURI] }

// Degree returns the electrical degree of a node: the number of terminals
// referencing it. Degree 0 is an orphan, degree 1 an open end.
func (g *Graph) Degree(nodeURI string) int { return g.degree[nodeURI] }

// NodeURIs returns all connectivity node URIs in lexicographic order.
func (g *Graph) NodeURIs() []string { return model.SortedURIs(g.degree) }

// Adjacent reports whether two equipment pieces share a connectivity node.
func (g *Graph) Adjacent(a, b string) bool {
	for _, n := range g.nodesOf[a] {
		if _, found := slices.BinarySearch(g.nodesOf[b], n); found {
			return true
		}
	}
	return false
}

// Components partitions the connectivity nodes touched by a voltage
// level's equipment into connected components. Each component is a sorted
// slice of CN URIs; components are sorted by their first member so the
// result is deterministic. Used by the resolver to decide whether two
// inferred busbars are topologically disconnected.
func (g *Graph) Components(vlURI string) [][]string {
	equipment := g.snap.EquipmentInVoltageLevel(vlURI)
	if len(equipment) == 0 {
		return nil
	}

	ids := make(map[string]int64)
	uris := make(map[int64]string)
	ug := simple.NewUndirectedGraph()

	id := func(uri string) int64 {
		n, ok := ids[uri]
		if !ok {
			n = int64(len(ids))
			ids[uri] = n
			uris[n] = uri
			ug.AddNode(simple.Node(n))
		}
		return n
	}

	for _, eq := range equipment {
		eqID := id("eq:" + eq.URI)
		for _, cn := range g.nodesOf[eq.URI] {
			cnID := id("cn:" + cn)
			if eqID != cnID && ug.Edge(eqID, cnID) == nil {
				ug.SetEdge(ug.NewEdge(simple.Node(eqID), simple.Node(cnID)))
			}
		}
	}

	var out [][]string
	for _, comp := range topo.ConnectedComponents(ug) {
		var nodes []string
		for _, n := range comp {
			uri := uris[n.ID()]
			if cn, ok := strings.CutPrefix(uri, "cn:"); ok {
				nodes = append(nodes, cn)
			}
		}
		if len(nodes) == 0 {
			continue
		}
		slices.Sort(nodes)
		out = append(out, nodes)
	}
	slices.SortFunc(out, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return out
}
