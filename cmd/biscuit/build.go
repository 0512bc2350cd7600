package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"biscuit/internal/driver"
	"biscuit/internal/trace"
)

// exitCode carries the status a program run asked for.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func asExitCode(err error, out *exitCode) bool { return errors.As(err, out) }

var errBuildFailed = errors.New("build failed")

func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("syntax-only", false, "stop after parsing")
	f.Bool("print-tokens", false, "print the token stream of every unit")
	f.Bool("print-scopes", false, "print global and module scopes after analysis")
	f.Bool("dump-mir", false, "print the analyzed IR")
	f.String("emit-mir", "", "write an IR snapshot to `path`")
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [path|files...]",
		Short: "Load and analyze a biscuit program",
		Long: `Build loads the entry files and everything they #load or #import,
generates IR on the worker pool and analyzes it. Without arguments the
project manifest (biscuit.toml) of the current directory is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCommand(cmd, args, false)
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [path|files...]",
		Short: "Build a program and run its entry function in the VM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCommand(cmd, args, true)
		},
	}
	addBuildFlags(cmd)
	cmd.Flags().String("entry", "main", "entry function")
	return cmd
}

func compileCommand(cmd *cobra.Command, args []string, run bool) error {
	opts, baseDir, err := loadOptions(cmd, args)
	if err != nil {
		return err
	}
	if err := applyBuildFlags(cmd, &opts); err != nil {
		return err
	}
	opts.Run = run
	if run {
		if opts.Entry, err = cmd.Flags().GetString("entry"); err != nil {
			return err
		}
	}
	out, err := readOutputFlags(cmd)
	if err != nil {
		return err
	}
	opts.Out = cmd.OutOrStdout()

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
	opts.Tracer = tracer

	ctx := trace.WithTracer(contextOrBackground(cmd), tracer)
	var res *driver.Result
	if out.tui {
		res, err = runWithUI(ctx, opts.Name, baseDir, opts)
	} else {
		res, err = driver.Compile(ctx, opts)
	}
	if err != nil {
		return err
	}
	if err := printResult(cmd, res, out, baseDir); err != nil {
		return err
	}
	if res.Failed() {
		return errBuildFailed
	}
	if res.Ran && res.ExitCode != 0 {
		return exitCode(res.ExitCode)
	}
	return nil
}

func applyBuildFlags(cmd *cobra.Command, opts *driver.Options) error {
	f := cmd.Flags()
	var err error
	if f.Changed("syntax-only") {
		if opts.SyntaxOnly, err = f.GetBool("syntax-only"); err != nil {
			return err
		}
	}
	if opts.PrintTokens, err = f.GetBool("print-tokens"); err != nil {
		return err
	}
	if opts.PrintScopes, err = f.GetBool("print-scopes"); err != nil {
		return err
	}
	if opts.DumpMIR, err = f.GetBool("dump-mir"); err != nil {
		return err
	}
	if opts.EmitMIR, err = f.GetString("emit-mir"); err != nil {
		return err
	}
	return nil
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func stderrIsTerminal() bool { return isTerminal(os.Stderr) }
