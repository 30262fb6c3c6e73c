// Command surfd is the bridge daemon: the native-messaging host process
// browsers launch, exposing a local-domain socket to any number of
// clients. See internal/bridge for the implementation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/surfbridge/surf/internal/bridge"
	"github.com/surfbridge/surf/internal/config"
	"github.com/surfbridge/surf/internal/diagstatus"
	"github.com/surfbridge/surf/internal/manifest"
	"github.com/surfbridge/surf/internal/obslog"
)

const version = "0.1.0"

var (
	configPath  string
	nativeHost  bool
	binaryPath  string
	extensionID string
)

var rootCmd = &cobra.Command{
	Use:   "surfd",
	Short: "surf browser-automation bridge daemon",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the bridge daemon until its upstream or the local socket closes",
	RunE:  runServe,
}

var installManifestCmd = &cobra.Command{
	Use:   "install-manifest",
	Short: "print the native-messaging manifest JSON for this binary",
	Long: `Prints the native-messaging manifest document to stdout. Writing it to
the browser-specific install path is an external concern (see
internal/manifest) and is not performed by this command.`,
	RunE: runInstallManifest,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the surfd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to surf config YAML")
	serveCmd.Flags().BoolVar(&nativeHost, "native-host", false, "treat surfd's own stdio as the framed upstream pipe instead of spawning cmd/surf-router")

	installManifestCmd.Flags().StringVar(&binaryPath, "path", "", "absolute path to the surfd binary (defaults to the running executable's path)")
	installManifestCmd.Flags().StringVar(&extensionID, "extension-id", "", "the browser extension id allowed to talk to this host")
	_ = installManifestCmd.MarkFlagRequired("extension-id")

	rootCmd.AddCommand(serveCmd, installManifestCmd, versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := obslog.Init("surfd")
	defer obslog.Sync()

	var upstream bridge.Upstream
	if nativeHost {
		upstream = bridge.NativeHostUpstream()
	} else {
		upstream, err = bridge.SpawnRouter(cfg.Router.Command)
		if err != nil {
			return fmt.Errorf("spawn router: %w", err)
		}
	}

	d := bridge.New(cfg, upstream)

	if configPath != "" {
		watcher, err := config.Watch(configPath, d.UpdateConfig)
		if err != nil {
			log.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Diag.Enabled {
		diag, err := diagstatus.New(cfg.Diag.Addr, d.Stats())
		if err != nil {
			log.Warn("diagnostics server disabled: bind failed", zap.Error(err))
		} else {
			go func() {
				if err := diag.Serve(ctx); err != nil {
					log.Warn("diagnostics server stopped", zap.Error(err))
				}
			}()
		}
	}

	log.Info("surfd ready", zap.String("socket", cfg.Socket.Path))
	return d.Run(ctx)
}

func runInstallManifest(cmd *cobra.Command, args []string) error {
	path := binaryPath
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable path: %w", err)
		}
		path = exe
	}
	m := manifest.New(path, extensionID)
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
