// Command feaprep turns declarative 2D structural model documents into gmsh
// geometry scripts and SolidsPy input tables.
package main

import (
	"errors"
	"fmt"
	"os"

	"feaprep/internal/domain"
)

// Exit codes distinguish the failing stage for scripts driving feaprep
const (
	exitFailure    = 1
	exitValidation = 2
	exitGeneration = 3
	exitTool       = 4
	exitConversion = 5
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var (
		verr    *domain.ValidationError
		genErr  *domain.GenerationError
		toolErr *domain.ExternalToolError
		convErr *domain.ConversionError
	)
	switch {
	case errors.As(err, &verr):
		return exitValidation
	case errors.As(err, &genErr):
		return exitGeneration
	case errors.As(err, &toolErr):
		return exitTool
	case errors.As(err, &convErr):
		return exitConversion
	}
	return exitFailure
}
