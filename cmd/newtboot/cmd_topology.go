package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/settings"
	"github.com/newtron-network/newtboot/pkg/topology"
)

func newTopologyCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "topology [FILE]",
		Short: "Bootstrap every router in a topology",
		Long: `Bootstrap every router in a topology document (YAML, JSON or TOML).

Without --run or --diff, routers are only connected. Each phase completes
for every router before the next starts; a failure ends the run.

  newtboot topology lab.yaml --wait --run
  newtboot topology lab.yaml --diff --parallel 8
  newtboot topology --run                  # default_topology from settings`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := topologyPath(args, loadSettings())
			if err != nil {
				return err
			}
			topo, err := topology.Load(path)
			if err != nil {
				return err
			}
			return f.execute(cmd.Context(), cmd.OutOrStdout(), topo, runName(path))
		},
	}
	f.register(cmd)
	return cmd
}

// topologyPath resolves the topology file from: argument > NEWTBOOT_TOPOLOGY
// env > settings > error.
func topologyPath(args []string, s *settings.Settings) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if v := firstOf(os.Getenv(envTopology), s.DefaultTopology); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("topology file required: pass FILE, set %s, or run 'newtboot settings set default_topology <file>'", envTopology)
}
