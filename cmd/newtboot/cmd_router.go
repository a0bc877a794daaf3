package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtboot/pkg/topology"
)

func newRouterCmd() *cobra.Command {
	var (
		f     runFlags
		typ   string
		attrs []string
	)
	cmd := &cobra.Command{
		Use:   "router NAME",
		Short: "Bootstrap a single router",
		Long: `Bootstrap one router without a topology document. The router has id 1
and no links; --attr values are passed to its template.

  newtboot router vmx1 --type vmx --attr asn=65001 --diff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAttrs(attrs)
			if err != nil {
				return err
			}
			topo, err := topology.NewSingle(args[0], topology.DeviceType(typ), fields)
			if err != nil {
				return err
			}
			return f.execute(cmd.Context(), cmd.OutOrStdout(), topo, args[0])
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "device type ("+strings.Join(topology.SupportedTypes(), ", ")+")")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "template attribute key=value (repeatable)")
	cmd.MarkFlagRequired("type")
	f.register(cmd)
	return cmd
}

// parseAttrs parses key=value pairs. Values are YAML scalars, so numbers
// and booleans keep their type; anything else is a string.
func parseAttrs(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --attr %q: want key=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || !isScalar(v) {
			v = raw
		}
		if v == nil {
			v = raw
		}
		attrs[key] = v
	}
	return attrs, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
