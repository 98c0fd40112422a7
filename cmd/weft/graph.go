package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftline/weft/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		stackName        string
		outputFormat     string
		clusterByService bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing resource dependencies.

The output can be rendered with Graphviz:
    weft graph --stack hellosecret | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    weft graph --stack hellosecret -f mermaid

Examples:
    weft graph --stack hellosecret
    weft graph --stack hellosecret -c             # cluster by service
    weft graph --stack hellosecret -f mermaid     # mermaid format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(stackName, outputFormat, clusterByService)
		},
	}

	addStackFlag(cmd, &stackName)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByService, "cluster", "c", false, "Cluster resources by AWS service")

	return cmd
}

func runGraph(stackName, format string, cluster bool) error {
	stack, err := selectStack(stackName)
	if err != nil {
		return err
	}

	g := graph.Build(stack)
	if len(g.Nodes()) == 0 {
		return fmt.Errorf("no resources declared")
	}

	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	exporter := &graph.Exporter{
		Format:           graphFormat,
		ClusterByService: cluster,
	}

	return exporter.Export(g, os.Stdout)
}
