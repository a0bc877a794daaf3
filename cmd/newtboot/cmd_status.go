package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/journal"
)

func newStatusCmd() *cobra.Command {
	var (
		journalAddr string
		jsonOutput  bool
	)
	cmd := &cobra.Command{
		Use:   "status [RUN]",
		Short: "Show the journal of a run",
		Long: `Show who holds a run's lock and the last recorded state of each router.

RUN defaults to the base name of the default topology file.

  newtboot status lab --journal localhost:6379
  newtboot status lab --journal file:///var/lib/newtboot/journal.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			addr := firstOf(journalAddr, os.Getenv(envJournal), s.JournalAddr)
			if addr == "" {
				return fmt.Errorf("journal address required: use --journal, set %s, or run 'newtboot settings set journal_addr <addr>'", envJournal)
			}

			var run string
			if len(args) > 0 {
				run = args[0]
			} else {
				path, err := topologyPath(nil, s)
				if err != nil {
					return fmt.Errorf("run name required: pass RUN or set a default topology")
				}
				run = runName(path)
			}

			j, err := journal.Open(cmd.Context(), addr, run)
			if err != nil {
				return err
			}
			defer j.Close()

			st, err := j.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&journalAddr, "journal", "", "Redis address or file:// path (env "+envJournal+")")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

func printStatus(w io.Writer, st *journal.Status) {
	fmt.Fprintf(w, "Run: %s\n", st.Run)
	if st.Lock != nil {
		fmt.Fprintf(w, "Lock: %s since %s (ttl %s)\n", yellow(st.Lock.Holder),
			st.Lock.Acquired.Local().Format(time.DateTime), st.Lock.TTL)
	} else {
		fmt.Fprintf(w, "Lock: %s\n", green("free"))
	}
	if len(st.Routers) == 0 {
		fmt.Fprintln(w, "no routers recorded")
		return
	}
	fmt.Fprintln(w)

	t := cli.NewTableTo(w, "ROUTER", "STATE", "UPDATED")
	for _, rs := range st.Routers {
		t.Row(rs.Router, rs.State, rs.Updated.Local().Format(time.DateTime))
	}
	t.Flush()
}
