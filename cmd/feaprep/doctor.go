package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"feaprep/internal/adapter"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Checks the gmsh installation and the tool configuration",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("gmsh", "", "gmsh binary path")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if cfgPath != "" {
		fmt.Fprintf(out, "config:  %s\n", cfgPath)
	} else {
		fmt.Fprintln(out, "config:  built-in defaults")
	}
	fmt.Fprintln(out, cfg.Summary())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	probe, err := adapter.ProbeGmsh(ctx, cfg.Gmsh.Path)
	if err != nil {
		fmt.Fprintf(out, "gmsh:    unavailable: %v\n", err)
		if cfg.Mesher == "gmsh" {
			return fmt.Errorf("default mesher gmsh is not usable; install gmsh or set mesher: structured")
		}
		return nil
	}
	fmt.Fprintf(out, "gmsh:    %s (version %s)\n", probe.Path, probe.Version)
	return nil
}
