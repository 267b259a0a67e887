package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlillywh/hydrosim/pkg/logger"
)

var (
	runExportFormat string
	runExportDir    string
	runTimesteps    int

	runCmd = &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run a water allocation simulation",
		Long: `Run loads a scenario file, compiles the network and climate, and
simulates water allocation day by day. Results are printed to stdout
and, when a database is configured, saved to run history.`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().StringVar(&runExportFormat, "export", "", "export results (csv, json, xlsx, markdown, pdf)")
	runCmd.Flags().StringVarP(&runExportDir, "out", "o", "", "directory for exported files")
	runCmd.Flags().IntVarP(&runTimesteps, "timesteps", "t", 0, "override the scenario timestep count")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.close()

	sim, err := loadSimulation(args[0])
	if err != nil {
		return err
	}
	if runTimesteps > 0 {
		sim.Settings.Timesteps = runTimesteps
	}

	eng, err := buildEngine(rt, sim, rt.repo, rt.allocationCache(sim.Solver))
	if err != nil {
		return err
	}

	logger.Info("Starting run",
		"scenario", sim.Name,
		"network", sim.Network.Name,
		"timesteps", sim.Settings.Timesteps,
	)

	results, err := eng.Run(ctx)
	if err != nil {
		if results != nil {
			printResults(cmd.OutOrStdout(), results)
		}
		return err
	}

	printResults(cmd.OutOrStdout(), results)

	path, err := exportResults(ctx, rt, results, runExportFormat, runExportDir)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Results exported to", path)
	}
	return nil
}
