package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"gmark/internal/util"
)

type rootOptions struct {
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "gmark",
		Short:         "Schema-driven graph query workload generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stdout)
			log.SetFlags(log.LstdFlags | log.Lmicroseconds)
			util.SetVerbose(opts.verbose)
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log per-query details")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newParseCommand(opts))
	cmd.AddCommand(newSummarizeCommand(opts))
	return cmd
}
