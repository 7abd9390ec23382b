package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/config"
)

var archiveKeep int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage persisted run reports",
	Long: `Inspect and prune the run report archive.

The backend (file, redis, s3) comes from the archive section of the
configuration.`,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived run reports, newest first",
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived run report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest reports",
	RunE:  runArchivePrune,
}

func init() {
	archivePruneCmd.Flags().IntVar(&archiveKeep, "keep", 50, "Number of newest reports to keep")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archivePruneCmd)
	rootCmd.AddCommand(archiveCmd)
}

func openBackend(cmd *cobra.Command) (archive.Backend, error) {
	cfg := config.Global().Get()
	backend, err := archive.NewBackend(cmd.Context(), cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive backend: %w", err)
	}
	return backend, nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd)
	if err != nil {
		return err
	}

	reports, err := backend.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		fmt.Printf("No archived runs in %s.\n", backend.Name())
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-8s  %s\n", "RUN", "CREATED", "STATUS", "DURATION")
	for _, rep := range reports {
		status := "ok"
		if rep.Halted {
			status = "halted"
		}
		fmt.Printf("%-36s  %-20s  %-8s  %.1fms\n",
			rep.RunID,
			rep.CreatedAt.Format(time.RFC3339),
			status,
			rep.DurationMs)
	}
	fmt.Printf("\n%d report(s) in %s\n", len(reports), backend.Name())

	return nil
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd)
	if err != nil {
		return err
	}

	rep, err := backend.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(rep)
}

func runArchivePrune(cmd *cobra.Command, args []string) error {
	backend, err := openBackend(cmd)
	if err != nil {
		return err
	}

	pruned, err := archive.Prune(cmd.Context(), backend, archiveKeep)
	if err != nil {
		return err
	}

	fmt.Printf("Pruned %d report(s), kept the newest %d.\n", pruned, archiveKeep)
	return nil
}
