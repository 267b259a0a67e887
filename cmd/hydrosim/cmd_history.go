package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jlillywh/hydrosim/internal/repository"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect saved runs",
		Long:  `History lists, shows, exports and deletes runs saved in the database.`,
	}

	historyLimit   int
	historyOffset  int
	historyNetwork string
	historyStatus  string

	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		RunE:  runHistoryList,
	}

	historyShowCmd = &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	historyExportFormat string
	historyExportDir    string

	historyExportCmd = &cobra.Command{
		Use:   "export [run-id]",
		Short: "Export a saved run to a report file",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryExport,
	}

	historyDeleteCmd = &cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a saved run and its records",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	}
)

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "number of runs to skip")
	historyListCmd.Flags().StringVar(&historyNetwork, "network", "", "filter by network name")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "filter by run status")

	historyExportCmd.Flags().StringVar(&historyExportFormat, "export", "", "export format (csv, json, xlsx, markdown, pdf)")
	historyExportCmd.Flags().StringVarP(&historyExportDir, "out", "o", "", "directory for exported files")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyExportCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()

	opts := &repository.ListOptions{Limit: historyLimit, Offset: historyOffset}
	if historyNetwork != "" || historyStatus != "" {
		opts.Filter = &repository.ListFilter{Network: historyNetwork, Status: historyStatus}
	}

	runs, total, err := rt.repo.List(ctx, opts)
	if err != nil {
		return err
	}
	printRunList(cmd.OutOrStdout(), runs, total)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()

	run, err := rt.repo.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	printRun(cmd.OutOrStdout(), run)
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()

	run, err := rt.repo.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	records, err := rt.repo.Records(ctx, run.ID)
	if err != nil {
		return err
	}

	path, err := exportResults(ctx, rt, resultsFromRun(run, records), historyExportFormat, historyExportDir)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("no export format configured, pass --export or set export.format")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Run exported to", path)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.repo.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Run", args[0], "deleted")
	return nil
}
