package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"feaprep/internal/log"
	"feaprep/internal/service"
	"feaprep/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <model-document>...",
	Short: "Re-converts model documents whenever they change",
	Long: `Converts every document once, then again each time it is saved. Each
document publishes into its own directory under the output root; a failed
conversion is reported and the previous tables stay in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	flags := watchCmd.Flags()
	flags.StringP("output", "o", ".", "output root directory")
	flags.String("mesher", "", "mesh generator: gmsh or structured")
	flags.Duration("timeout", 0, "gmsh timeout per conversion")
	flags.String("gmsh", "", "gmsh binary path")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	outputs := make(map[string]string, len(args))
	var reqs []service.Request
	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if _, seen := outputs[abs]; seen {
			continue
		}
		outputs[abs] = filepath.Join(root, defaultOutputDir(path))
		reqs = append(reqs, service.Request{Path: abs, OutputDir: outputs[abs]})
	}
	if err := service.CheckDistinctOutputs(reqs); err != nil {
		return err
	}

	svc, closeFn, err := newService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	convertOne := func(path string) {
		res, err := svc.Convert(ctx, service.Request{Path: path, OutputDir: outputs[path]})
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			return
		}
		fmt.Fprintf(out, "ok   %s -> %s: %d nodes, %d elements\n",
			path, res.OutputDir, res.Summary.Nodes, res.Summary.Elements)
	}
	for path := range outputs {
		convertOne(path)
	}

	err = watcher.New(args, convertOne).Watch(ctx)
	if errors.Is(err, context.Canceled) {
		log.Infof("watch stopped")
		return nil
	}
	return err
}
