package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"biscuit/internal/diagfmt"
	"biscuit/internal/driver"
	"biscuit/internal/version"
)

type outputOptions struct {
	format  string
	color   bool
	quiet   bool
	timings bool
	tui     bool
}

func readOutputFlags(cmd *cobra.Command) (outputOptions, error) {
	var out outputOptions
	f := cmd.Flags()
	colorValue, err := f.GetString("color")
	if err != nil {
		return out, err
	}
	switch strings.ToLower(colorValue) {
	case "on":
		out.color = true
	case "off":
	case "auto", "":
		out.color = cmd.ErrOrStderr() == os.Stderr && stderrIsTerminal()
	default:
		return out, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorValue)
	}
	if out.format, err = f.GetString("format"); err != nil {
		return out, err
	}
	switch out.format {
	case "pretty", "json", "sarif":
	default:
		return out, fmt.Errorf("unsupported format %q (must be pretty, json or sarif)", out.format)
	}
	if out.quiet, err = f.GetBool("quiet"); err != nil {
		return out, err
	}
	if out.timings, err = f.GetBool("timings"); err != nil {
		return out, err
	}
	uiValue, err := f.GetString("ui")
	if err != nil {
		return out, err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return out, err
	}
	out.tui = shouldUseTUI(mode) && out.format == "pretty"
	return out, nil
}

// printResult writes diagnostics and, unless quiet, the summary and
// timings. Pretty output goes to stderr, machine formats to stdout.
func printResult(cmd *cobra.Command, res *driver.Result, out outputOptions, baseDir string) error {
	switch out.format {
	case "json":
		return diagfmt.JSON(cmd.OutOrStdout(), res.Diagnostics, res.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			BaseDir:          baseDir,
			IncludeNotes:     true,
			Dropped:          res.Dropped,
		})
	case "sarif":
		return diagfmt.Sarif(cmd.OutOrStdout(), res.Diagnostics, res.Files, diagfmt.SarifRunMeta{
			ToolName:       "biscuit",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	errOut := cmd.ErrOrStderr()
	diagfmt.Pretty(errOut, res.Diagnostics, res.Files, diagfmt.PrettyOpts{
		Color:     out.color,
		Context:   1,
		PathMode:  diagfmt.PathModeAuto,
		BaseDir:   baseDir,
		ShowNotes: true,
	})
	if out.quiet {
		return nil
	}
	diagfmt.Summary(errOut, res.Diagnostics, res.Dropped, out.color)
	if out.timings {
		fmt.Fprint(errOut, res.Timer.Summary())
		fmt.Fprint(errOut, res.Stats.Summary())
		fmt.Fprintf(errOut, "  %-20s %7d\n", "analyzer passes", res.Passes)
	}
	return nil
}
