// Command surf-router is the "extension" half of the bridge: it reads
// framed tool_request messages on stdin, drives a Chromium instance over
// the Chrome DevTools Protocol, and writes framed tool_response messages
// on stdout. The daemon (cmd/surfd) spawns it as a child process by
// default, per SPEC_FULL.md Open Question resolution #1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/capture"
	"github.com/surfbridge/surf/internal/codec"
	"github.com/surfbridge/surf/internal/config"
	"github.com/surfbridge/surf/internal/obslog"
	"github.com/surfbridge/surf/internal/router"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "surf-router",
	Short: "drives a Chromium instance over CDP on behalf of surfd",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to surf config YAML")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := obslog.Init("surf-router")
	defer obslog.Sync()

	store, err := capture.New(cfg.Capture.BaseDir, capture.Options{
		TTL:          cfg.Capture.TTL,
		SizeCapBytes: cfg.Capture.SizeCapBytes,
		LockStale:    cfg.Capture.LockStale,
	})
	if err != nil {
		return fmt.Errorf("open capture store: %w", err)
	}
	sched := capture.StartScheduler(store)
	defer sched.Stop()

	r := router.New(store, cfg.Router.DefaultTimeout, cfg.Workflow.AutoWaitTimeout, cfg.Capture.SizeCapBytes/4)
	if err := r.Launch(cfg.Browser.BinPath, cfg.Browser.Headless, cfg.Browser.ControlURL); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	rd := codec.NewReader(os.Stdin)
	wr := codec.NewWriter(os.Stdout)

	log.Info("surf-router ready")
	if err := r.Serve(rd, wr); err != nil {
		log.Info("router pipe closed", zap.Error(err))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
