package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"feaprep/internal/service"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep <model-document>...",
	Short: "Converts several model documents concurrently",
	Long: `Converts every document into its own directory under the output root. The
directory is named after the document file, so two documents with the same
file name are rejected before anything runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	flags := sweepCmd.Flags()
	flags.StringP("output", "o", ".", "output root directory")
	flags.IntP("jobs", "j", 0, "concurrent conversions (default: one per CPU)")
	flags.String("mesher", "", "mesh generator: gmsh or structured")
	flags.Duration("timeout", 0, "gmsh timeout per conversion")
	flags.String("gmsh", "", "gmsh binary path")
}

func runSweep(cmd *cobra.Command, args []string) error {
	root, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	reqs := make([]service.Request, 0, len(args))
	for _, path := range args {
		reqs = append(reqs, service.Request{
			Path:      path,
			OutputDir: filepath.Join(root, defaultOutputDir(path)),
		})
	}

	svc, closeFn, err := newService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	results, err := svc.Sweep(ctx, reqs, cfg.Sweep.Parallelism)
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", r.Request.Path, r.Err)
			continue
		}
		drift := ""
		if r.Result.Drift {
			drift = " (drift)"
		}
		fmt.Fprintf(out, "ok   %s -> %s: %d nodes, %d elements%s\n",
			r.Request.Path, r.Result.OutputDir, r.Result.Summary.Nodes, r.Result.Summary.Elements, drift)
	}
	return err
}
