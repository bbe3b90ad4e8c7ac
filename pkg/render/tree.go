package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/scene"
)

// TreeDOT describes the placement tree of w in Graphviz DOT. Every
// placement is a node labeled with its volume's name and material;
// sensitive volumes are filled.
func TreeDOT(w *scene.World) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("digraph placements {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightgrey];\n", "world", volumeLabel(w.Root()))

	// path[d] is the node placed at depth d; path[0] is the world.
	path := []string{"world"}
	n := 0
	err := w.Walk(func(p *scene.Placement, _ geom.Transform, depth int) error {
		n++
		id := fmt.Sprintf("p%d", n)
		attrs := []string{fmt.Sprintf("label=%q", p.Name()+"\n"+volumeLabel(p.Volume()))}
		if w.IsSensitive(p.Volume()) {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
		fmt.Fprintf(&buf, "  %q -> %q;\n", path[depth-1], id)
		path = append(path[:depth], id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("render: placement tree: %w", err)
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func volumeLabel(v *scene.Volume) string {
	if mat := v.Material(); mat != nil {
		return v.Name() + " [" + mat.Name + "]"
	}
	return v.Name()
}

// TreeSVG renders the placement tree of w to SVG with Graphviz.
func TreeSVG(ctx context.Context, w *scene.World) ([]byte, error) {
	dot, err := TreeDOT(w)
	if err != nil {
		return nil, err
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("render: parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: graphviz: %w", err)
	}
	return buf.Bytes(), nil
}
