package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/render"
	"github.com/newtron-network/newtboot/pkg/topology"
)

func newShowCmd() *cobra.Command {
	var (
		jsonOutput  bool
		doRender    bool
		templateDir string
	)
	cmd := &cobra.Command{
		Use:   "show [FILE]",
		Short: "Show routers and assigned links without connecting",
		Long: `Load a topology, assign links and print the result. With --render, also
print each router's rendered configuration.

  newtboot show lab.yaml
  newtboot show lab.yaml --render --template-dir ./templates
  newtboot show lab.yaml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			path, err := topologyPath(args, s)
			if err != nil {
				return err
			}
			topo, err := topology.Load(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if doRender {
				engine := render.New(firstOf(templateDir, s.TemplateDir))
				for _, r := range topo.Routers {
					if _, err := render.Router(engine, r); err != nil {
						return err
					}
				}
			}

			if jsonOutput {
				return showJSON(w, topo, doRender)
			}
			showTopology(w, topo)
			if doRender {
				for _, r := range topo.Routers {
					fmt.Fprintf(w, "\n%s\n%s", cli.Bold("=== "+r.Name+" ==="), r.RenderedConfig)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	cmd.Flags().BoolVar(&doRender, "render", false, "render each router's configuration")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "directory of <template>.tmpl files overriding the built-ins")
	return cmd
}

func showTopology(w io.Writer, topo *topology.Topology) {
	routers := cli.NewTableTo(w, "ROUTER", "ID", "TYPE", "FAMILY", "TEMPLATE", "ATTRS")
	for _, r := range topo.Routers {
		routers.Row(r.Name, strconv.Itoa(r.ID), string(r.Type), string(r.Family()), r.Template, strconv.Itoa(len(r.Attrs)))
	}
	routers.Flush()

	links := cli.NewTableTo(w, "LINK", "ROUTER", "INTERFACE", "NUMERIC", "SIDE", "REMOTE")
	for _, r := range topo.Routers {
		for _, l := range r.Links {
			links.Row(strconv.Itoa(l.LinkID), r.Name, l.Interface, strconv.Itoa(l.Numeric), strconv.Itoa(l.Side),
				l.Remote.Router+":"+l.Remote.Interface)
		}
	}
	fmt.Fprintln(w)
	links.Flush()
}

type routerJSON struct {
	*topology.Router
	Config string `json:"config,omitempty"`
}

func showJSON(w io.Writer, topo *topology.Topology, withConfig bool) error {
	out := make([]routerJSON, len(topo.Routers))
	for i, r := range topo.Routers {
		out[i] = routerJSON{Router: r}
		if withConfig {
			out[i].Config = r.RenderedConfig
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
