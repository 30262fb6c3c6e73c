// Package config loads the bridge daemon and router configuration from
// YAML, with environment overrides and file-watch hot-reload, in the
// style of the teacher's internal/config package.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon/router configuration.
type Config struct {
	Socket    SocketConfig    `yaml:"socket"`
	Router    RouterConfig    `yaml:"router"`
	Browser   BrowserConfig   `yaml:"browser"`
	Capture   CaptureConfig   `yaml:"capture"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Logging   LoggingConfig   `yaml:"logging"`
	Diag      DiagConfig      `yaml:"diag"`
	Serialize SerializeConfig `yaml:"serialize"`
}

// BrowserConfig configures the Chromium instance the router drives over
// CDP, per §4.D.
type BrowserConfig struct {
	BinPath    string `yaml:"bin_path"`    // empty: let the launcher find/download one
	Headless   bool   `yaml:"headless"`
	ControlURL string `yaml:"control_url"` // non-empty: connect to an already-running Chrome instead of launching
}

// SocketConfig configures the local-domain socket the daemon listens on.
type SocketConfig struct {
	Path string `yaml:"path"` // default /tmp/surf.sock on unix
}

// RouterConfig configures how the daemon spawns/talks to the router.
type RouterConfig struct {
	Command        []string      `yaml:"command"` // argv for the router binary
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	PerToolTimeout map[string]time.Duration `yaml:"per_tool_timeout"`
}

// CaptureConfig configures the network-capture store.
type CaptureConfig struct {
	BaseDir      string        `yaml:"base_dir"`
	TTL          time.Duration `yaml:"ttl"`
	SizeCapBytes int64         `yaml:"size_cap_bytes"`
	LockStale    time.Duration `yaml:"lock_stale"`
}

// WorkflowConfig configures the sequential step executor.
type WorkflowConfig struct {
	MaxLoopIterations int           `yaml:"max_loop_iterations"`
	AutoWaitTimeout   time.Duration `yaml:"auto_wait_timeout"`
}

// LoggingConfig configures structured logging verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DiagConfig configures the loopback diagnostics HTTP surface.
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SerializeConfig lists tool/site keys that must run one-at-a-time.
type SerializeConfig struct {
	SiteKeyedTools []string `yaml:"site_keyed_tools"`
}

// Default returns the baseline configuration described in spec §3/§6.
func Default() Config {
	return Config{
		Socket: SocketConfig{Path: defaultSocketPath()},
		Router: RouterConfig{
			Command:        []string{"surf-router"},
			DefaultTimeout: 30 * time.Second,
			PerToolTimeout: map[string]time.Duration{},
		},
		Browser: BrowserConfig{Headless: true},
		Capture: CaptureConfig{
			BaseDir:      defaultCaptureDir(),
			TTL:          24 * time.Hour,
			SizeCapBytes: 200 * 1024 * 1024,
			LockStale:    5 * time.Second,
		},
		Workflow: WorkflowConfig{
			MaxLoopIterations: 100,
			AutoWaitTimeout:   5 * time.Second,
		},
		Diag: DiagConfig{Enabled: true, Addr: "127.0.0.1:0"},
	}
}

func defaultSocketPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\surf`
	}
	return "/tmp/surf.sock"
}

func defaultCaptureDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.TempDir(), "surf")
	}
	return "/tmp/surf"
}

// Load reads path (if non-empty and present), falls back to Default(),
// then applies environment overrides — env beats file per spec §6.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides replaces a field with its SURF_* variable whenever
// that variable is set; each variable controls a different field.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SURF_NETWORK_PATH"); v != "" {
		c.Capture.BaseDir = v
	}
	if v := os.Getenv("SURF_SOCKET_PATH"); v != "" {
		c.Socket.Path = v
	}
	if v := os.Getenv("SURF_HOST_PATH"); v != "" {
		c.Router.Command = []string{v}
	}
	if os.Getenv("SURF_DEBUG") != "" {
		c.Logging.Debug = true
	}
}
