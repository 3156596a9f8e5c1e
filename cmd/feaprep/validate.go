package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feaprep/internal/codec"
	"feaprep/internal/schema"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <model-document>...",
	Short: "Checks model documents and reports every violation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// reportedError summarizes failures whose detail was already printed. It
// unwraps to the first failure so the exit code reflects its stage.
type reportedError struct {
	summary string
	first   error
}

func (e *reportedError) Error() string { return e.summary }
func (e *reportedError) Unwrap() error { return e.first }

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var (
		first  error
		failed int
	)
	for _, path := range args {
		doc, err := codec.LoadFile(path)
		if err == nil {
			var spec *schema.ModelSpec
			if spec, err = schema.Validate(doc); err == nil {
				fmt.Fprintf(out, "%s: ok (%s %q, %d physical groups)\n",
					path, spec.Geometry().Family(), spec.Name(), len(spec.PhysicalIDs()))
				continue
			}
		}
		fmt.Fprintf(out, "%s: %v\n", path, err)
		failed++
		if first == nil {
			first = err
		}
	}
	if failed > 0 {
		return &reportedError{
			summary: fmt.Sprintf("%d of %d model documents are invalid", failed, len(args)),
			first:   first,
		}
	}
	return nil
}
