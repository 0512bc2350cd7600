package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"biscuit/internal/trace"
)

// readTraceConfig turns the trace flags into a tracer config. --trace
// without a level traces phases; an output file with ring mode also
// streams.
func readTraceConfig(cmd *cobra.Command) (trace.Config, time.Duration, error) {
	f := cmd.Flags()
	var cfg trace.Config
	levelStr, _ := f.GetString("trace-level")
	modeStr, _ := f.GetString("trace-mode")
	cfg.OutputPath, _ = f.GetString("trace")
	cfg.RingSize, _ = f.GetInt("trace-ring-size")
	heartbeat, _ := f.GetDuration("trace-heartbeat")

	var err error
	if cfg.Level, err = trace.ParseLevel(levelStr); err != nil {
		return cfg, 0, err
	}
	if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
		return cfg, 0, err
	}
	if cfg.OutputPath != "" {
		if cfg.Level == trace.LevelOff {
			cfg.Level = trace.LevelPhase
		}
		if cfg.Mode == trace.ModeRing {
			cfg.Mode = trace.ModeBoth
		}
	}
	return cfg, heartbeat, nil
}

// setupTracing creates the tracer for one command. The cleanup stops the
// heartbeat and closes the tracer; a ring-only tracer is dumped to stderr
// so the last events of the build are visible.
func setupTracing(cmd *cobra.Command) (trace.Tracer, func(), error) {
	cfg, interval, err := readTraceConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Level == trace.LevelOff {
		return trace.Nop, func() {}, nil
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	hb := trace.StartHeartbeat(tracer, interval)
	stderr := cmd.ErrOrStderr()
	return tracer, func() {
		hb.Stop()
		if ring, ok := tracer.(*trace.Ring); ok {
			if err := ring.Dump(stderr, trace.FormatText); err != nil {
				fmt.Fprintf(stderr, "trace: %v\n", err)
			}
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(stderr, "trace: %v\n", err)
		}
	}, nil
}
