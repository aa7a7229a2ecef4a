package main

import (
	"log"

	"github.com/spf13/cobra"
)

func createReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report [index]",
		Short: "Open a saved batch in the interactive viewer",
		Long: `Loads saved batch number [index] (as shown by "batches list") into the viewer.
Struck groups can be toggled and the batch updated in place`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			index := parseIndex(args[0])

			ctx, cancel := signalContext()
			defer cancel()

			a := mustApp(ctx)
			defer a.Close()
			requirePersistentStore(a)

			viewer := newViewer("")
			ctrl := newController(ctx, a, nopReport{}, viewer)
			defer ctrl.Close()
			viewer.Controller = ctrl

			if err := ctrl.Refresh(ctx); err != nil {
				log.Fatalf("Failed to list batches: %v", err)
			}
			if _, err := ctrl.LoadBatch(index); err != nil {
				log.Fatalf("Failed to load batch %d: %v", index+1, err)
			}
			if err := viewer.Run(ctx); err != nil {
				log.Fatalf("Viewer failed: %v", err)
			}
		},
	}
}
