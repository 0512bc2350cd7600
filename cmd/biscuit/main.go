// Package main implements the biscuit CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"biscuit/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "biscuit",
		Short:         "Biscuit language compiler front end",
		Long:          `Biscuit loads, parses and analyzes programs and runs them in the compile-time VM`,
		Version:       version.Colored(version.Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	// Глобальные флаги
	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("ui", "off", "progress UI (auto|on|off)")
	pf.String("format", "pretty", "diagnostics format (pretty|json|sarif)")

	pf.Int("threads", 0, "worker threads for loading units (0 = CPU count)")
	pf.Bool("single-thread", false, "run every job on the main thread")
	pf.Int("error-limit", 0, "stop reporting after this many errors (0 = default)")
	pf.Bool("warnings-as-errors", false, "report warnings as errors")
	pf.String("target", "", "target platform (host, x86_64-linux, ...)")
	pf.StringSlice("module-dir", nil, "additional module search directory")

	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "ring", "trace storage mode (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity in events")
	pf.Duration("trace-heartbeat", 0, "heartbeat interval (0 disables)")

	pf.String("cpu-profile", "", "write a CPU profile to `file`")
	pf.String("mem-profile", "", "write a heap profile to `file`")
	pf.String("runtime-trace", "", "write a Go runtime trace to `file`")
	return root
}

// main runs the root command; any error exits with status 1. Programs run
// with `biscuit run` exit with the code their entry returned.
func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var exit exitCode
		if asExitCode(err, &exit) {
			os.Exit(int(exit))
		}
		root.PrintErrln("error:", err)
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
