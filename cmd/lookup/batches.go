package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cardinal-lookup/internal/app"
	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/terminal"
)

func createBatchesCmd() *cobra.Command {
	batchesCmd := &cobra.Command{
		Use:   "batches",
		Short: "Manage saved batches",
		Long:  `List, show, export and delete the saved batches of --user, newest first`,
	}

	batchesCmd.AddCommand(createBatchesListCmd())
	batchesCmd.AddCommand(createBatchesShowCmd())
	batchesCmd.AddCommand(createBatchesExportCmd())
	batchesCmd.AddCommand(createBatchesDeleteCmd())

	return batchesCmd
}

func createBatchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved batches",
		Run: func(cmd *cobra.Command, args []string) {
			withBatches(func(ctx context.Context, a *app.App, ctrl *controller.Controller, r *terminal.Renderer) {
				r.WriteBatches(os.Stdout, ctrl.Batches())
			})
		},
	}
}

func createBatchesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [index]",
		Short: "Print the report of a saved batch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			index := parseIndex(args[0])
			withBatches(func(ctx context.Context, a *app.App, ctrl *controller.Controller, r *terminal.Renderer) {
				b, err := ctrl.LoadBatch(index)
				if err != nil {
					log.Fatalf("Failed to load batch %d: %v", index+1, err)
				}
				fmt.Printf("%s (%s)\n", b.Name, b.ID)
				rep := ctrl.Report()
				r.WriteReport(os.Stdout, rep.Records, rep.Strikes)
			})
		},
	}
}

func createBatchesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [index] [file]",
		Short: "Write a saved batch to a CSV file",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			index := parseIndex(args[0])
			withBatches(func(ctx context.Context, a *app.App, ctrl *controller.Controller, r *terminal.Renderer) {
				if _, err := ctrl.LoadBatch(index); err != nil {
					log.Fatalf("Failed to load batch %d: %v", index+1, err)
				}
				if err := exportReport(args[1], ctrl.Report()); err != nil {
					log.Fatalf("Failed to export CSV: %v", err)
				}
				fmt.Printf("Exported to %s\n", args[1])
			})
		},
	}
}

func createBatchesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [index]",
		Short: "Delete a saved batch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			index := parseIndex(args[0])
			withBatches(func(ctx context.Context, a *app.App, ctrl *controller.Controller, r *terminal.Renderer) {
				batches := ctrl.Batches()
				if index >= len(batches) {
					log.Fatalf("Failed to delete batch %d: %v", index+1, controller.ErrBatchOutOfRange)
				}
				if err := ctrl.DeleteBatch(ctx, batches[index].ID); err != nil {
					os.Exit(1)
				}
			})
		},
	}
}

// withBatches runs fn with a controller whose batch list has been loaded.
func withBatches(fn func(ctx context.Context, a *app.App, ctrl *controller.Controller, r *terminal.Renderer)) {
	ctx, cancel := signalContext()
	defer cancel()

	a := mustApp(ctx)
	defer a.Close()
	requirePersistentStore(a)

	r := terminal.NewRenderer(os.Stdout, useColor())
	ctrl := newController(ctx, a, nopReport{}, r)
	defer ctrl.Close()

	if err := ctrl.Refresh(ctx); err != nil {
		log.Fatalf("Failed to list batches: %v", err)
	}
	fn(ctx, a, ctrl, r)
}

// parseIndex turns a 1-based batch number as listed into a 0-based index.
func parseIndex(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		log.Fatalf("Invalid batch number: %s", arg)
	}
	return n - 1
}

// exportReport writes the report to path as CSV.
func exportReport(path string, rep controller.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := batch.WriteCSV(f, rep.Records, rep.Strikes); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// nopReport discards render calls; the one-shot commands print explicitly.
type nopReport struct{}

func (nopReport) RenderReport([]batch.Record, []bool) {}
func (nopReport) RenderBatches([]batch.Batch)         {}
