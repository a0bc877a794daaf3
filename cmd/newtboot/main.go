// newtboot bootstraps configuration onto the virtual routers of a lab
// topology: it connects to every router (optionally waiting for it to
// boot), renders and stages each router's configuration, then commits it
// or shows the diff and discards it.
//
// Usage:
//
//	newtboot topology lab.yaml --wait --run     Push config to every router
//	newtboot topology lab.yaml --diff           Show what would change
//	newtboot router vmx1 --type vmx --run       Bootstrap one router
//	newtboot show lab.yaml                      Show routers and assigned links
//	newtboot status lab                         Show the journal for a run
//	newtboot settings set parallel 4            Persist a default
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/util"
	"github.com/newtron-network/newtboot/pkg/version"
)

var (
	verbose bool
	logJSON bool
	envFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "newtboot",
	Short:             "Bootstrap configuration onto lab routers",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `newtboot pushes rendered configuration to the routers of a lab topology
through each device's candidate configuration: connect, stage, then commit
(--run) or compare and discard (--diff).

  newtboot topology lab.yaml --wait --run`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}
		return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "load NEWTBOOT_* variables from this file if it exists")

	rootCmd.AddCommand(
		newTopologyCmd(),
		newRouterCmd(),
		newShowCmd(),
		newStatusCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String("newtboot"))
		},
	}
}

// Color helpers delegate to pkg/cli.
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
