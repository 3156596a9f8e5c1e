package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"feaprep/internal/service"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <model-document>",
	Short: "Converts a model document into a geometry script, mesh and solver tables",
	Long: `Converts a model document (.yaml, .yml, .json or .hcl) into <model>.geo,
<model>.msh, nodes.txt, eles.txt, mater.txt and loads.txt. The files are
published together into the output directory or not at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.StringP("output", "o", "", "output directory (default: the document name without extension)")
	flags.String("mesher", "", "mesh generator: gmsh or structured")
	flags.Duration("timeout", 0, "gmsh timeout")
	flags.String("gmsh", "", "gmsh binary path")
}

// defaultOutputDir names the output directory after the document file
func defaultOutputDir(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runConvert(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = defaultOutputDir(args[0])
	}

	svc, closeFn, err := newService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := svc.Convert(ctx, service.Request{Path: args[0], OutputDir: outDir})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d nodes, %d elements, %d materials, %d loads (%s)\n",
		res.Model, res.Summary.Nodes, res.Summary.Elements, res.Summary.Materials, res.Summary.Loads, res.Tool)
	fmt.Fprintf(out, "written to %s (run %s)\n", res.OutputDir, res.RunID)
	if res.Drift {
		fmt.Fprintf(out, "warning: tables differ from run %s with the same inputs and mesher\n", res.Previous.ID)
	}
	return nil
}
