// File: cmd/zusd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zusd: the user-space filesystem daemon. Loads configuration, locks
// memory, brings up the runtime against the zuf control device and serves
// until SIGINT/SIGTERM.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/zus-go/api"
	"github.com/momentics/zus-go/control"
	"github.com/momentics/zus-go/core"
	"github.com/momentics/zus-go/internal/concurrency"
	"github.com/momentics/zus-go/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "zusd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "", "YAML configuration file")
		rootPath   = pflag.String("root", "", "zuf control-device path")
		debugMask  = pflag.Uint64("debug-mask", 0, "debug channel mask")
		logLevel   = pflag.String("log-level", "", "trace|debug|info|warn|error")
		realTime   = pflag.Bool("rt", false, "run workers under SCHED_RR")
		rrPriority = pflag.Int("rr-priority", 20, "SCHED_RR priority")
	)
	pflag.Parse()

	cfg := control.Default()
	if *configPath != "" {
		var err error
		if cfg, err = control.Load(*configPath); err != nil {
			return err
		}
	}

	// Flags override the file.
	if *rootPath != "" {
		cfg.RootPath = *rootPath
	}
	if *debugMask != 0 {
		cfg.DebugMask = *debugMask
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *realTime {
		cfg.RealTime = true
		cfg.RRPriority = *rrPriority
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "zusd",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	concurrency.SetLogger(log)

	if err := control.ApplyMlock(cfg); err != nil {
		// Degraded but functional; pmem faults just get slower.
		log.Warn("memory locking failed", "mode", cfg.Mlock, "error", err)
	}

	rt, err := core.New(core.Options{
		Relay:       relay.New(cfg.RootPath),
		Config:      cfg,
		Logger:      log,
		Filesystems: api.Filesystems(),
		Notify: func() {
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				log.Debug("sd_notify", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}

	if err := rt.Start(); err != nil {
		return err
	}

	var g errgroup.Group
	done := make(chan struct{})
	g.Go(func() error {
		rt.Join()
		close(done)
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", s)
			rt.Stop()
		case <-done:
			// Mount thread left on its own; nothing to unwind.
		}
		return nil
	})
	return g.Wait()
}
