package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// startupParams is everything a subcommand needs from the command line
type startupParams struct {
	verbose   bool
	seed      int64
	traceFile string
	monitor   bool

	groups  int
	units   int
	draws   int
	burn    int
	tuning  int
	chains  int
	rho     float64
	lag     bool
	trunc   string
	propose string

	out       *log.Logger
	trace     *log.Logger
	traceSink io.Closer
}

// setup creates the loggers, opening the trace file if one was given
func (sp *startupParams) setup() error {
	sp.out = log.New(os.Stdout, "", log.Ltime)
	sp.trace = log.New(io.Discard, "", 0)
	sp.traceSink = nil

	if len(sp.traceFile) < 1 {
		return nil
	}

	f, err := os.Create(sp.traceFile)
	if err != nil {
		return errors.Wrapf(err, "Could not create trace file %s", sp.traceFile)
	}
	sp.trace = log.New(f, "", 0)
	sp.traceSink = f
	return nil
}

// run calls fn between setup and closing the trace file. A failed close is
// reported unless fn already failed.
func (sp *startupParams) run(fn func(*startupParams) error) (err error) {
	if err := sp.setup(); err != nil {
		return err
	}
	defer func() {
		if sp.traceSink == nil {
			return
		}
		if cerr := sp.traceSink.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "Could not close trace file %s", sp.traceFile)
		}
	}()
	return fn(sp)
}

func (sp *startupParams) check() error {
	if sp.groups < 3 {
		return errors.Errorf("Need at least 3 groups for a ring, got %d", sp.groups)
	}
	if sp.units < 1 {
		return errors.Errorf("Need at least one unit per group, got %d", sp.units)
	}
	if sp.draws < 2 || sp.burn < 0 || sp.burn >= sp.draws-1 {
		return errors.Errorf("Need 0 <= burn < draws-1, got burn=%d draws=%d", sp.burn, sp.draws)
	}
	if sp.chains < 1 {
		return errors.Errorf("Need at least one chain, got %d", sp.chains)
	}
	return nil
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	sp := &startupParams{}

	rootCmd := &cobra.Command{
		Use:   "hsdm",
		Short: "Hierarchical Spatial Durbin Model sampling",
		Long: `hsdm estimates a two level Bayesian spatial regression with a
Metropolis-within-Gibbs sampler. Among other features:

  - Conjugate Gibbs updates for coefficients, group effects and variances
  - An adaptive random walk Metropolis step for the group level Rho
  - Independent chains with Gelman-Rubin diagnostics
`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().Int64VarP(&sp.seed, "seed", "r", 1, "Random seed to use")
	rootCmd.PersistentFlags().StringVarP(&sp.traceFile, "trace", "t", "", "File to write trace output to")
	rootCmd.PersistentFlags().IntVarP(&sp.groups, "groups", "g", 12, "Number of groups (placed on a ring)")
	rootCmd.PersistentFlags().IntVarP(&sp.units, "units", "u", 8, "Number of units in every group")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Sample a synthetic HSDM with known parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.run(Simulate)
		},
	}
	simulateCmd.Flags().IntVarP(&sp.draws, "draws", "d", 2000, "Draws per chain")
	simulateCmd.Flags().IntVarP(&sp.burn, "burn", "b", 500, "Draws discarded from the start of every chain")
	simulateCmd.Flags().IntVar(&sp.tuning, "tuning", 10, "Adaptation cycles for the Rho step")
	simulateCmd.Flags().IntVarP(&sp.chains, "chains", "n", 3, "Independent chains")
	simulateCmd.Flags().Float64Var(&sp.rho, "rho", 0.4, "True group level Rho")
	simulateCmd.Flags().BoolVar(&sp.lag, "lag", false, "Add spatially lagged covariates")
	simulateCmd.Flags().StringVar(&sp.trunc, "truncate", "eigs", "Rho domain: eigs or stable")
	simulateCmd.Flags().StringVar(&sp.propose, "proposal", "normal", "Rho proposal: normal, t or uniform")
	simulateCmd.Flags().BoolVarP(&sp.monitor, "monitor", "w", false, "Serve progress over HTTP while sampling")

	dotCmd := &cobra.Command{
		Use:   "dot",
		Short: "Print the group level weights graph in graphviz format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.run(DotOutput)
		},
	}

	rootCmd.AddCommand(simulateCmd, dotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
