package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"feaprep/internal/geometry"
	"feaprep/internal/service"
)

// scriptCmd represents the script command
var scriptCmd = &cobra.Command{
	Use:   "script <model-document>",
	Short: "Prints the gmsh geometry script of a model document",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)

	scriptCmd.Flags().StringP("output", "o", "", "write the script to a file instead of stdout")
	scriptCmd.Flags().Bool("groups", false, "list the declared physical groups instead of the script")
}

func runScript(cmd *cobra.Command, args []string) error {
	svc := service.NewConversionService(nil, nil, nil, cfg.Mesher)
	script, err := svc.Script(service.Request{Path: args[0]})
	if err != nil {
		return err
	}
	text := script.Render()

	if groups, _ := cmd.Flags().GetBool("groups"); groups {
		declared, err := geometry.ParsePhysicalGroups(text)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range declared {
			fmt.Fprintf(out, "%d\t%dD\t%s\t%s\t%v\n", g.ID, g.Dim, g.Kind, g.Name, g.Entities)
		}
		return nil
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
