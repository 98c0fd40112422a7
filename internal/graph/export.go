package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"
)

// Format specifies the output format for graph export.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Exporter renders a dependency graph for visualization.
type Exporter struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByService groups resources by AWS service.
	ClusterByService bool
}

// Export renders the graph and writes it to w.
func (e *Exporter) Export(g *Graph, w io.Writer) error {
	dg := e.buildDot(g)

	format := e.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(dg, dot.MermaidTopToBottom)
	} else {
		output = dg.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// ExportString is a convenience method that returns the rendered graph.
func (e *Exporter) ExportString(g *Graph) (string, error) {
	var sb strings.Builder
	if err := e.Export(g, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildDot creates the dot.Graph structure.
func (e *Exporter) buildDot(g *Graph) *dot.Graph {
	dg := dot.NewGraph(dot.Directed)
	dg.Attr("rankdir", "TB")

	dg.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	dg.EdgeInitializer(func(ed dot.Edge) {
		ed.Attr("fontname", "Arial")
		ed.Attr("fontsize", "10")
	})

	if e.ClusterByService {
		e.addClusteredNodes(dg, g)
	} else {
		for _, node := range g.Nodes() {
			n := dg.Node(node.Name)
			n.Label(node.Name + "\\n[" + node.Resource.ResourceType() + "]")
		}
	}

	for _, node := range g.Nodes() {
		attrTargets := make(map[string]bool)
		for _, ref := range node.Refs {
			if ref.Attribute != "" {
				attrTargets[ref.Target] = true
			}
		}

		for _, dep := range node.Dependencies() {
			if g.Node(dep) == nil {
				continue
			}
			ed := dg.Edge(dg.Node(node.Name), dg.Node(dep))
			// Attribute references resolve live state, mark them
			if attrTargets[dep] {
				ed.Attr("color", "blue")
			}
		}
	}

	return dg
}

// addClusteredNodes adds nodes grouped by AWS service.
func (e *Exporter) addClusteredNodes(dg *dot.Graph, g *Graph) {
	byService := make(map[string][]*Node)
	for _, node := range g.Nodes() {
		svc := serviceOf(node.Resource.ResourceType())
		byService[svc] = append(byService[svc], node)
	}

	for svc, nodes := range byService {
		if len(nodes) > 1 {
			cluster := dg.Subgraph("cluster_"+svc, dot.ClusterOption{})
			cluster.Attr("label", svc)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, node := range nodes {
				n := cluster.Node(node.Name)
				n.Label(node.Name + "\\n[" + node.Resource.ResourceType() + "]")
			}
		} else {
			for _, node := range nodes {
				n := dg.Node(node.Name)
				n.Label(node.Name + "\\n[" + node.Resource.ResourceType() + "]")
			}
		}
	}
}

// serviceOf extracts the service segment from a resource type.
// e.g., "AWS::Lambda::Function" -> "Lambda"
func serviceOf(resourceType string) string {
	parts := strings.Split(resourceType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}
