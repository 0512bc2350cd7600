package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"biscuit/internal/driver"
	"biscuit/internal/project"
)

const noManifestMessage = "no " + project.ManifestName + " found; pass source files or run `biscuit init`"

// loadOptions builds the assembly options for args. A single directory
// argument (or none) selects a project manifest; otherwise args are entry
// files. Settings are layered: manifest, then .env and the process
// environment, then explicitly set flags.
func loadOptions(cmd *cobra.Command, args []string) (driver.Options, string, error) {
	var (
		opts    driver.Options
		baseDir string
		build   project.BuildConfig
	)
	manifestDir, useManifest := manifestArg(args)
	if useManifest {
		m, found, err := project.LoadManifest(manifestDir)
		if err != nil {
			return opts, "", err
		}
		if !found {
			return opts, "", errors.New(noManifestMessage)
		}
		env, err := project.LoadEnv(m.Root)
		if err != nil {
			return opts, "", err
		}
		env.Apply(&m.Config.Build)
		if opts, err = driver.FromManifest(m); err != nil {
			return opts, "", err
		}
		baseDir = m.Root
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return opts, "", err
		}
		env, err := project.LoadEnv(wd)
		if err != nil {
			return opts, "", err
		}
		env.Apply(&build)
		for _, f := range args {
			if !strings.EqualFold(filepath.Ext(f), project.SourceExt) {
				return opts, "", fmt.Errorf("%s: not a %s file", f, project.SourceExt)
			}
		}
		opts = driver.Options{
			Name:       strings.TrimSuffix(filepath.Base(args[0]), project.SourceExt),
			Files:      args,
			Threads:    build.Threads,
			ErrorLimit: build.ErrorLimit,
			ModuleDirs: build.ModuleDirs,
		}
		baseDir = wd
	}
	if err := applyFlags(cmd, &opts); err != nil {
		return opts, "", err
	}
	return opts, baseDir, nil
}

func manifestArg(args []string) (string, bool) {
	switch len(args) {
	case 0:
		return ".", true
	case 1:
		if st, err := os.Stat(args[0]); err == nil && st.IsDir() {
			return args[0], true
		}
	}
	return "", false
}

// applyFlags overrides options with the flags the user actually set.
func applyFlags(cmd *cobra.Command, opts *driver.Options) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("threads") {
		if opts.Threads, err = flags.GetInt("threads"); err != nil {
			return err
		}
	}
	if flags.Changed("single-thread") {
		if opts.SingleThread, err = flags.GetBool("single-thread"); err != nil {
			return err
		}
	}
	if flags.Changed("error-limit") {
		if opts.ErrorLimit, err = flags.GetInt("error-limit"); err != nil {
			return err
		}
	}
	if flags.Changed("warnings-as-errors") {
		if opts.WarningsAsErrors, err = flags.GetBool("warnings-as-errors"); err != nil {
			return err
		}
	}
	if flags.Changed("target") {
		if opts.Target, err = flags.GetString("target"); err != nil {
			return err
		}
	}
	dirs, err := flags.GetStringSlice("module-dir")
	if err != nil {
		return err
	}
	opts.ModuleDirs = append(opts.ModuleDirs, dirs...)
	if opts.Threads < 0 || opts.ErrorLimit < 0 {
		return errors.New("--threads and --error-limit must not be negative")
	}
	return nil
}
