package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gmark/internal/report"
)

func newSummarizeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <run-dir>",
		Short: "Print a table of the workload summaries of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := report.LoadSummaries(args[0])
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				return errors.Errorf("no %s found under %s", report.SummaryName, args[0])
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.FormatRun(summaries))
			return err
		},
	}
}
