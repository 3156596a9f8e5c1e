package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"feaprep/internal/domain"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [model]",
	Short: "Lists recorded conversion runs, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of runs")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	model := ""
	if len(args) == 1 {
		model = args[0]
	}

	svc, closeFn, err := newService()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := signalContext()
	defer cancel()

	runs, err := svc.History(ctx, model, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tMODEL\tTOOL\tSTATUS\tNODES\tELEMENTS\tDIGEST")
	for _, r := range runs {
		digest := r.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		if r.Status != domain.RunSucceeded {
			digest = r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(r.ID), r.CreatedAt.Local().Format(time.DateTime), r.Model, r.Tool, r.Status,
			r.Summary.Nodes, r.Summary.Elements, firstLine(digest))
	}
	return w.Flush()
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
