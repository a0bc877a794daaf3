package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtboot/pkg/bootstrap"
	"github.com/newtron-network/newtboot/pkg/cli"
	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/device/container"
	"github.com/newtron-network/newtboot/pkg/journal"
	"github.com/newtron-network/newtboot/pkg/metrics"
	"github.com/newtron-network/newtboot/pkg/render"
	"github.com/newtron-network/newtboot/pkg/topology"
	"github.com/newtron-network/newtboot/pkg/util"
)

// runFlags are the flags shared by every command that drives routers.
type runFlags struct {
	commit      bool
	diff        bool
	wait        bool
	parallel    int
	bootTimeout time.Duration

	user    string
	pass    string
	askPass bool

	templateDir   string
	renderDir     string
	journalAddr   string
	metricsFile   string
	dockerNetwork string
	jsonOutput    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.commit, "run", false, "render, stage and commit configuration")
	fl.BoolVar(&f.diff, "diff", false, "render, stage and show the diff, then discard")
	fl.BoolVar(&f.wait, "wait", false, "wait for routers to finish booting")
	fl.IntVar(&f.parallel, "parallel", 0, "routers worked on at once (default from settings, else 1)")
	fl.DurationVar(&f.bootTimeout, "boot-timeout", device.DefaultBootTimeout, "give up waiting for a router to boot after this long")
	fl.StringVarP(&f.user, "username", "u", "", "device username (env "+envUsername+")")
	fl.StringVarP(&f.pass, "password", "p", "", "device password (env "+envPassword+")")
	fl.BoolVar(&f.askPass, "ask-pass", false, "prompt for the device password")
	fl.StringVar(&f.templateDir, "template-dir", "", "directory of <template>.tmpl files overriding the built-ins")
	fl.StringVar(&f.renderDir, "render-dir", "", "write each rendered configuration to DIR/<router>.cfg")
	fl.StringVar(&f.journalAddr, "journal", "", "Redis address or file:// path for the run lock and journal (env "+envJournal+")")
	fl.StringVar(&f.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	fl.StringVar(&f.dockerNetwork, "docker-network", "", "container network used for the address fallback")
	fl.BoolVar(&f.jsonOutput, "json", false, "JSON output")
	cmd.MarkFlagsMutuallyExclusive("run", "diff")
}

// execute runs the orchestrator over topo and prints the outcome.
func (f *runFlags) execute(ctx context.Context, w io.Writer, topo *topology.Topology, run string) error {
	s := loadSettings()
	creds, err := resolveCredentials(f.user, f.pass, f.askPass, s, readPasswordTerminal)
	if err != nil {
		return err
	}

	resolver := device.FallbackResolver{Primary: device.HostResolver{}}
	if cr, docker, err := container.NewFromEnv(); err != nil {
		util.Warnf("Container address fallback disabled: %v", err)
	} else {
		defer docker.Close()
		cr.Network = f.dockerNetwork
		resolver.Fallback = cr
	}

	o := &bootstrap.Orchestrator{
		Topology: topo,
		Renderer: render.New(firstOf(f.templateDir, s.TemplateDir)),
		Drivers:  bootstrap.SSHDrivers(),
		Resolver: resolver,
		Metrics:  metrics.New(),
	}

	if addr := firstOf(f.journalAddr, os.Getenv(envJournal), s.JournalAddr); addr != "" {
		j, err := journal.Open(ctx, addr, run)
		if err != nil {
			return err
		}
		defer j.Close()
		o.Journal = j
	}

	parallel := f.parallel
	if parallel <= 0 {
		parallel = s.GetParallel()
	}

	start := time.Now()
	res, runErr := o.Run(ctx, bootstrap.Options{
		WaitForBoot: f.wait,
		Commit:      f.commit,
		Diff:        f.diff,
		Parallel:    parallel,
		RenderDir:   f.renderDir,
		Credentials: creds,
		BootTimeout: f.bootTimeout,
		Holder:      holder(),
	})

	if f.metricsFile != "" {
		if err := o.Metrics.WriteTextfile(f.metricsFile); err != nil {
			util.Warnf("%v", err)
		}
	}
	if err := printResult(w, res, f.jsonOutput); err != nil {
		return err
	}
	if !f.jsonOutput {
		printFailures(w, runErr)
	}
	if runErr == nil {
		util.Infof("Run %s finished in %s", run, time.Since(start).Round(time.Second))
	}
	return runErr
}

// printFailures names the routers that failed the last phase.
func printFailures(w io.Writer, err error) {
	if failed := bootstrap.Failed(err); len(failed) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", red("failed:"), strings.Join(failed, ", "))
	}
}

// holder identifies this process in the journal lock.
func holder() string {
	host, _ := os.Hostname()
	user := firstOf(os.Getenv("USER"), "unknown")
	return fmt.Sprintf("%s@%s:%d", user, host, os.Getpid())
}

// runName is the journal run name for a topology file: its base name
// without extension.
func runName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type routerOutput struct {
	Router  string `json:"router"`
	Address string `json:"address,omitempty"`
	State   string `json:"state"`
	Diff    string `json:"diff,omitempty"`
}

func printResult(w io.Writer, res *bootstrap.Result, jsonOutput bool) error {
	if res == nil {
		return nil
	}

	if jsonOutput {
		out := make([]routerOutput, len(res.Routers))
		for i, rr := range res.Routers {
			out[i] = routerOutput{Router: rr.Router, Address: rr.Address, State: rr.State.String(), Diff: rr.Diff}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, rr := range res.Routers {
		fmt.Fprintf(w, "%s %s\n", cli.DotPad(rr.Router, 24), stateColor(rr.State))
	}
	for _, rr := range res.Routers {
		if rr.State != device.StateDiscarded {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", cli.Bold("=== "+rr.Router+" ==="))
		if rr.Diff == "" {
			fmt.Fprintln(w, cli.Dim("(no changes)"))
			continue
		}
		fmt.Fprint(w, cli.ColorDiff(rr.Diff))
	}
	if discarded := countState(res, device.StateDiscarded); discarded > 0 {
		fmt.Fprintf(w, "\n%d of %d routers have changes\n", len(res.Diffs()), discarded)
	}
	return nil
}

func countState(res *bootstrap.Result, state device.State) int {
	n := 0
	for _, rr := range res.Routers {
		if rr.State == state {
			n++
		}
	}
	return n
}

func stateColor(s device.State) string {
	switch s {
	case device.StateCommitted:
		return green(s.String())
	case device.StateDisconnected, device.StateConnecting:
		return red(s.String())
	}
	return yellow(s.String())
}
