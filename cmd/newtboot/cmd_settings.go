package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persistent settings",
		Long: `Settings are stored in ` + settings.DefaultSettingsPath() + `.

  newtboot settings show
  newtboot settings set parallel 4
  newtboot settings set journal_addr ""     # clear one key
  newtboot settings clear`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show all settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					return err
				}
				values := s.Values()
				t := cli.NewTableTo(cmd.OutOrStdout(), "KEY", "VALUE")
				for _, k := range settings.Keys() {
					t.Row(k, values[k])
				}
				t.Flush()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Set a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					return err
				}
				if err := s.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := s.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Reset all settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					s = &settings.Settings{}
				}
				s.Clear()
				return s.Save()
			},
		},
	)
	return cmd
}
