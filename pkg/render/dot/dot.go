// Package dot renders the resolved connectivity graph to Graphviz DOT
// for debugging busbar resolution. The output is an engineering aid, not
// the diagram itself: equipment and connectivity nodes appear as a
// bipartite graph, with resolved busbar membership shown by color.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/gridsmith/sldgen/pkg/busbar"
	"github.com/gridsmith/sldgen/pkg/model"
	"github.com/gridsmith/sldgen/pkg/topology"
)

// Options configures DOT output.
type Options struct {
	// Detailed includes equipment type and subtype in node labels.
	// When false, only the display name is shown.
	Detailed bool
}

// busbarPalette cycles over busbar memberships within a voltage level.
var busbarPalette = []string{
	"lightblue", "lightgreen", "lightsalmon", "lightgoldenrod",
	"plum", "paleturquoise", "mistyrose",
}

// ToDOT converts a snapshot and its resolved busbars to Graphviz DOT.
// Equipment render as boxes, connectivity nodes as small circles; nodes
// claimed by a busbar share that busbar's fill color. The resulting DOT
// string can be rendered with [RenderSVG].
func ToDOT(snap *model.Snapshot, g *topology.Graph, res *busbar.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph connectivity {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=12];\n")
	buf.WriteString("\n")

	colors := busbarColors(res)

	for _, uri := range model.SortedURIs(snap.Equipment) {
		eq := snap.Equipment[uri]
		attrs := []string{
			fmt.Sprintf("label=%q", equipmentLabel(eq, opts.Detailed)),
			"shape=box", `style="rounded,filled"`,
		}
		fill := "white"
		if eq.Type == model.TypeBusbar {
			fill = "gold"
		}
		attrs = append(attrs, fmt.Sprintf("fillcolor=%s", fill))
		fmt.Fprintf(&buf, "  %q [%s];\n", uri, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, uri := range model.SortedURIs(snap.Nodes) {
		fill := colors[uri]
		if fill == "" {
			fill = "lightgrey"
		}
		fmt.Fprintf(&buf, "  %q [label=\"\", shape=circle, width=0.15, style=filled, fillcolor=%s];\n",
			uri, fill)
	}

	buf.WriteString("\n")
	for _, uri := range model.SortedURIs(snap.Equipment) {
		for _, edge := range g.EdgesOf(uri) {
			fmt.Fprintf(&buf, "  %q -- %q;\n", edge.EquipmentURI, edge.NodeURI)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// busbarColors assigns a palette color to every connectivity node claimed
// by a busbar, cycling the palette per voltage level.
func busbarColors(res *busbar.Result) map[string]string {
	colors := make(map[string]string)
	if res == nil {
		return colors
	}
	for _, vlURI := range model.SortedURIs(res.ByVoltageLevel) {
		asg := res.ByVoltageLevel[vlURI]
		for i, bb := range asg.Busbars {
			color := busbarPalette[i%len(busbarPalette)]
			for _, node := range bb.Nodes {
				colors[node] = color
			}
		}
	}
	return colors
}

func equipmentLabel(eq *model.Equipment, detailed bool) string {
	name := eq.Name
	if name == "" {
		name = eq.URI
	}
	if !detailed {
		return name
	}
	label := name + "\n" + string(eq.Type)
	if eq.Subtype != "" {
		label += " " + eq.Subtype
	}
	return label
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
