package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"coordinator/internal/dependency"
	"coordinator/internal/manifest"
)

// newGraphCmd previews a manifest's activation order without deploying
// anything — built on the same service DependsOn edges C4/C5's scheduler
// traverses at run time, but answered statically here for inspection.
func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <manifest.xml>",
		Short: "Print a manifest's service activation order, grouped by dependency layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifestFile(args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}

			g := serviceGraph(m)
			layers, err := g.TopologicalSort()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, layer := range layers {
				fmt.Fprintf(out, "%d:", i)
				for _, id := range layer {
					fmt.Fprintf(out, " %s", id)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// serviceGraph builds a dependency.Graph from a manifest's services, one
// node per service name, edges from each service's DependsOn mappings.
func serviceGraph(m *manifest.Manifest) *dependency.Graph {
	g := dependency.New()
	for name, svc := range m.Services {
		deps := make([]dependency.NodeID, 0, len(svc.DependsOn))
		for _, d := range svc.DependsOn {
			deps = append(deps, dependency.NodeID(d.Service))
		}
		g.AddNode(dependency.Node{ID: dependency.NodeID(name), DependsOn: deps})
	}
	return g
}
