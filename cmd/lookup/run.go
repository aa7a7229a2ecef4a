package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/schollz/progressbar/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/engine"
	"github.com/cardinal-lookup/internal/terminal"
)

func createRunCmd() *cobra.Command {
	var (
		strict      bool
		save        bool
		interactive bool
		name        string
		csvOut      string
	)

	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Look up owners for a list of addresses",
		Long: `Reads one address per line ("<house number> <street name> ...") from a file or
stdin, queries the parcel service and prints the grouped owner report`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			text, err := readInput(args)
			if err != nil {
				log.Fatalf("Failed to read addresses: %v", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			a := mustApp(ctx)
			defer a.Close()
			if save {
				requirePersistentStore(a)
			}
			if interactive && !a.Config.Store.Persistent() {
				a.Log.Warnf("STORE_DRIVER=%s: batches saved in the viewer are lost on exit", a.Config.Store.Driver)
			}

			var (
				viewer   *terminal.Viewer
				renderer = terminal.NewRenderer(os.Stdout, useColor())
				ctrl     *controller.Controller
			)
			if interactive {
				viewer = newViewer(name)
				ctrl = newController(ctx, a, nil, viewer)
				viewer.Controller = ctrl
			} else {
				ctrl = newController(ctx, a, renderer, renderer)
			}
			defer ctrl.Close()

			bar := progressbar.NewOptions(len(a.Runner.Parse(text)),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
			)
			opts := engine.Options{
				Strict: strict,
				OnProgress: func(p engine.Progress) {
					bar.Add(1)
				},
			}

			res, err := ctrl.RunLookup(ctx, text, opts)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				log.Fatalf("Lookup failed: %v", err)
			}
			if res == nil {
				fmt.Println(terminal.EmptyReport)
				return
			}
			a.Log.WithFields(logrus.Fields{
				"queries":  res.Stats.Queries,
				"matched":  res.Stats.Matched,
				"no_match": res.Stats.NoMatch,
				"excluded": res.Stats.Excluded,
				"failed":   res.Stats.Failed,
			}).Info("lookup complete")

			if csvOut != "" {
				if err := exportReport(csvOut, ctrl.Report()); err != nil {
					log.Fatalf("Failed to export CSV: %v", err)
				}
			}

			if interactive {
				if err := viewer.Run(ctx); err != nil {
					log.Fatalf("Viewer failed: %v", err)
				}
				return
			}

			if save {
				if err := ctrl.SaveOrUpdate(ctx, name); err != nil {
					os.Exit(1)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Request up to ARCGIS_STRICT_LIMIT candidates per address and apply the strict selection")
	cmd.Flags().BoolVar(&save, "save", false, "Save the report as a new batch")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Open the report in the interactive viewer")
	cmd.Flags().StringVar(&name, "name", "", "Batch name (default \"Batch M/D/YYYY\")")
	cmd.Flags().StringVar(&csvOut, "csv", "", "Also write the report to this CSV file")

	return cmd
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}
