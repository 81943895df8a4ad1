package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gmark/internal/config"
	"gmark/internal/query"
	"gmark/internal/query/syntax"
	"gmark/internal/sqlgen"
	"gmark/internal/validator"
)

type parseOptions struct {
	*rootOptions
	language   string
	configPath string
	check      bool
}

func newParseCommand(root *rootOptions) *cobra.Command {
	opts := &parseOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "parse <expression>",
		Short: "Parse a CPQ or RPQ expression and print its tree and SQL",
		Long: `Parse reads one path expression, for example "a◦b⁻∩id" in CPQ or
"(a∪b)*◦c" in RPQ, and prints its syntax tree and compiled SQL.

Without --config every label is accepted and numbered in order of first
appearance. With --config labels must be predicates of the schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.language, "lang", "l", "cpq", "expression language (cpq|rpq)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file providing the schema and SQL layout")
	cmd.Flags().BoolVar(&opts.check, "check", true, "parse the compiled SQL with the TiDB parser")
	return cmd
}

func runParse(cmd *cobra.Command, opts *parseOptions, input string) error {
	lang, err := query.ParseLanguage(opts.language)
	if err != nil {
		return err
	}
	labels := syntax.NewLabelSet()
	sqlOpts := sqlgen.DefaultOptions()
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		s, err := cfg.BuildSchema()
		if err != nil {
			return err
		}
		labels = syntax.FromSchema(s)
		sqlOpts = cfg.Output.SQL.Options()
	}

	expr, err := query.ParseExpr(lang, input, labels)
	if err != nil {
		return err
	}
	stmt := sqlgen.New(sqlOpts).Expr(expr)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "expression: %s\n", expr)
	fmt.Fprintf(out, "diameter:   %d\n", query.Diameter(expr))
	fmt.Fprintf(out, "tree:       %s\n", query.ToTree(expr))
	fmt.Fprintf(out, "sql:\n%s\n", stmt)
	if opts.check {
		if err := validator.New().Validate(stmt); err != nil {
			return err
		}
	}
	return nil
}
