package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/logger"
	"github.com/jlillywh/hydrosim/pkg/telemetry"
	"github.com/jlillywh/hydrosim/pkg/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario]",
	Short: "Validate a scenario without running it",
	Long: `Validate loads and compiles a scenario, then checks the network
structure: demand reachability, connected components, negative cost
cycles and the cost ordering. Exits non-zero when validation fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, span := telemetry.StartSpan(ctx, "cli.Validate")
	defer span.End()

	out := cmd.OutOrStdout()

	sc, err := config.LoadScenario(args[0])
	if err != nil {
		return err
	}

	sim, ve := sc.Compile()
	if sim == nil {
		printProblems(out, ve)
		cause := ve.AsError()
		rt.journal.Validated(ctx, sc.Name, len(ve.Warnings), cause)
		telemetry.SetError(ctx, cause)
		return fmt.Errorf("scenario %q is invalid: %d error(s)", sc.Name, len(ve.Errors))
	}
	if ve != nil && ve.HasWarnings() {
		for _, w := range ve.Warnings {
			logger.Log.Warn("Scenario warning", "warning", w.Error())
		}
	}

	report := validate.All(sim.Network)
	span.SetAttributes(telemetry.NetworkAttributes(sim.Network.Name, report.Stats.Nodes, report.Stats.Links)...)

	printNetworkStats(out, report.Stats)
	printProblems(out, report.Result)

	result := report.Result
	span.SetAttributes(telemetry.ValidationAttributes(len(result.Errors), len(result.Warnings), report.Valid())...)

	if !report.Valid() {
		cause := result.AsError()
		rt.journal.Validated(ctx, sim.Network.Name, len(result.Warnings), cause)
		telemetry.SetError(ctx, cause)
		return fmt.Errorf("network %q is invalid: %d error(s)", sim.Network.Name, len(result.Errors))
	}

	rt.journal.Validated(ctx, sim.Network.Name, len(result.Warnings), nil)
	fmt.Fprintf(out, "\nNetwork %q is valid (%d warning(s))\n", sim.Network.Name, len(result.Warnings))
	return nil
}
