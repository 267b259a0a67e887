package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/jlillywh/hydrosim/internal/repository"
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/engine"
	"github.com/jlillywh/hydrosim/pkg/validate"
)

const timeLayout = "2006-01-02 15:04:05"

// printResults печатает отчёт прогона
func printResults(w io.Writer, results *engine.Results) {
	fmt.Fprintf(w, "\nRun %s\n", results.RunID)
	fmt.Fprintf(w, "Network:   %s\n", results.Network)
	fmt.Fprintf(w, "Status:    %s\n", results.Status)
	fmt.Fprintf(w, "Timesteps: %d of %d\n", results.Timesteps, results.PlannedTimesteps)
	if !results.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:  %s\n", results.FinishedAt.Sub(results.StartedAt).Round(time.Millisecond))
	}
	if len(results.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings:  %d\n", len(results.Warnings))
	}
	if results.Summary != nil {
		printSummary(w, results.Summary)
	}
}

// printSummary печатает сводку поставок и водохранилищ
func printSummary(w io.Writer, s *engine.Summary) {
	fmt.Fprintf(w, "\nTotal cost: %.2f\n", s.TotalCost)
	fmt.Fprintf(w, "Solve time: %s\n", s.SolveTime.Round(time.Millisecond))
	if s.CacheHits > 0 {
		fmt.Fprintf(w, "Cache hits: %d\n", s.CacheHits)
	}
	fmt.Fprintf(w, "Water balance: %.2f inflow, %.2f spill, %.2f evaporation\n",
		sumValues(s.TotalInflow), sumValues(s.TotalSpill), sumValues(s.TotalEvaporation))

	if len(s.TotalRequested) > 0 {
		fmt.Fprintln(w, "\nDeliveries:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  DEMAND\tREQUESTED\tDELIVERED\tDEFICIT\tDAYS SHORT\tRELIABILITY")
		for _, name := range sortedKeys(s.TotalRequested) {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%.2f\t%d\t%.1f%%\n",
				name, s.TotalRequested[name], s.TotalDelivered[name], s.TotalDeficit[name],
				s.DeficitDays[name], s.Reliability[name]*100)
		}
		tw.Flush()
	}

	if len(s.MinLevel) > 0 {
		fmt.Fprintln(w, "\nStorages:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  RESERVOIR\tMIN\tMAX\tFINAL")
		for _, name := range sortedKeys(s.MinLevel) {
			fmt.Fprintf(tw, "  %s\t%.2f\t%.2f\t%.2f\n",
				name, s.MinLevel[name], s.MaxLevel[name], s.FinalLevel[name])
		}
		tw.Flush()
	}
}

// printEnsemble печатает сводку ансамбля
func printEnsemble(w io.Writer, e *engine.Ensemble) {
	total := e.Completed + e.Truncated + e.Failed
	fmt.Fprintf(w, "\nEnsemble of %d replicate(s): %d completed, %d truncated, %d failed\n",
		total, e.Completed, e.Truncated, e.Failed)

	printStatsTable(w, "Delivered", e.TotalDelivered, 2)
	printStatsTable(w, "Deficit", e.TotalDeficit, 2)
	printStatsTable(w, "Reliability", e.Reliability, 3)
	printStatsTable(w, "Spill", e.TotalSpill, 2)
	printStatsTable(w, "Min storage", e.MinLevel, 2)
	printStatsTable(w, "Final storage", e.FinalLevel, 2)
}

// printStatsTable печатает таблицу статистик по узлам
func printStatsTable(w io.Writer, title string, stats map[string]engine.Stats, prec int) {
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  NODE\tMEAN\tMIN\tP10\tP50\tP90\tMAX")
	for _, name := range sortedKeys(stats) {
		s := stats[name]
		fmt.Fprintf(tw, "  %s\t%.*f\t%.*f\t%.*f\t%.*f\t%.*f\t%.*f\n",
			name, prec, s.Mean, prec, s.Min, prec, s.P10, prec, s.P50, prec, s.P90, prec, s.Max)
	}
	tw.Flush()
}

// printProblems печатает ошибки и предупреждения валидации
func printProblems(w io.Writer, ve *apperror.ValidationErrors) {
	if ve == nil {
		return
	}
	if len(ve.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(ve.Errors))
		for _, e := range ve.Errors {
			fmt.Fprintf(w, "  - %s\n", e.Error())
		}
	}
	if len(ve.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(ve.Warnings))
		for _, warn := range ve.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn.Error())
		}
	}
}

// printNetworkStats печатает сводку по составу сети
func printNetworkStats(w io.Writer, stats *validate.NetworkStats) {
	if stats == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Nodes:\t%d (%d sources, %d storages, %d demands, %d junctions)\n",
		stats.Nodes, stats.Sources, stats.Storages, stats.Demands, stats.Junctions)
	fmt.Fprintf(tw, "Links:\t%d (%d unbounded)\n", stats.Links, stats.UnboundedLinks)
	if stats.TotalLinkCapacity > 0 {
		fmt.Fprintf(tw, "Link capacity:\t%.2f total, %.2f average\n",
			stats.TotalLinkCapacity, stats.AvgLinkCapacity)
	}
	if stats.Storages > 0 {
		fmt.Fprintf(tw, "Storage:\t%.2f capacity, %.2f dead pool, %.2f initial\n",
			stats.TotalStorageCapacity, stats.TotalDeadPool, stats.TotalInitialStorage)
	}
	fmt.Fprintf(tw, "Components:\t%d\n", stats.Components)
	tw.Flush()
}

// printRunList печатает список сохранённых прогонов
func printRunList(w io.Writer, runs []*repository.RunOverview, total int64) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tNETWORK\tSTATUS\tTIMESTEPS\tCOST\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			r.ID, r.Network, r.Status, r.Timesteps, r.TotalCost, r.StartedAt.Format(timeLayout))
	}
	tw.Flush()
	fmt.Fprintf(w, "Showing %d of %d run(s)\n", len(runs), total)
}

// printRun печатает карточку сохранённого прогона
func printRun(w io.Writer, run *repository.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "Network:   %s\n", run.Network)
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	fmt.Fprintf(w, "Timesteps: %d of %d\n", run.Timesteps, run.PlannedTimesteps)
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Format(timeLayout))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:  %s\n", run.FinishedAt.Format(timeLayout))
	}
	if len(run.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(run.Warnings))
		for _, warn := range run.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
	if run.Summary != nil {
		printSummary(w, run.Summary)
	}
}

// sortedKeys возвращает ключи карты в алфавитном порядке
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// sumValues суммирует значения карты
func sumValues(m map[string]float64) float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}
