package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gmark/internal/config"
	"gmark/internal/runner"
	"gmark/internal/uploader"
	"gmark/internal/util"
)

type generateOptions struct {
	*rootOptions
	configPath string
	outputDir  string
	seed       int64
	dumpGraph  bool
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every workload of a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "override output.dir")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "override the config seed")
	cmd.Flags().BoolVar(&opts.dumpGraph, "dump-graph", false, "print the schema graph and exit")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	if opts.verbose {
		cfg.Logging.Verbose = true
	}
	util.SetVerbose(cfg.Logging.Verbose)
	if err := cfg.Validate(); err != nil {
		return err
	}

	r, err := runner.New(cfg)
	if err != nil {
		return err
	}
	if opts.dumpGraph {
		_, err := fmt.Fprint(cmd.OutOrStdout(), r.Graph().String())
		return err
	}

	logFile, err := util.TeeLogFile(cfg.Logging.LogFile)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer util.CloseWithErr(logFile, "log file")

	util.Infof("starting gmark with %d workload(s)", len(cfg.Workloads))
	if data, err := yaml.Marshal(&cfg); err == nil {
		util.Highlightf("config:\n%s", string(data))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	up, err := uploader.New(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "init uploader")
	}
	r.SetUploader(up)

	_, err = r.Run(ctx)
	return err
}
