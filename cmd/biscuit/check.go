package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"biscuit/internal/driver"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path|file.bl>...",
		Short: "Analyze several independent programs in parallel",
		Long: `Check builds every argument as a separate assembly: a directory with
biscuit.toml or a single source file. Assemblies run concurrently and are
reported in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	out, err := readOutputFlags(cmd)
	if err != nil {
		return err
	}
	targets := make([]driver.Options, 0, len(args))
	baseDirs := make([]string, 0, len(args))
	for _, arg := range args {
		opts, baseDir, err := loadOptions(cmd, []string{arg})
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
		if opts.Name == "" {
			opts.Name = arg
		}
		targets = append(targets, opts)
		baseDirs = append(baseDirs, baseDir)
	}
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProf()
	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	for i := range targets {
		targets[i].Tracer = tracer
	}

	results, err := driver.CheckMany(contextOrBackground(cmd), targets)
	if err != nil {
		return err
	}
	failed := 0
	for i, res := range results {
		if !out.quiet && len(results) > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "== %s\n", res.Name)
		}
		if err := printResult(cmd, res, out, baseDirs[i]); err != nil {
			return err
		}
		if res.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d targets failed", failed, len(results))
	}
	return nil
}
