package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames and subdirectories under the config root.
const (
	// DefaultLeaderKeyfile is the leader's pre-provisioned identity.
	DefaultLeaderKeyfile = "leader-id.json"

	// DefaultValidatorKeyfile is a validator's pre-provisioned identity.
	DefaultValidatorKeyfile = "validator-id.json"

	// DefaultMintKeyfile is the funded identity the drone distributes from.
	DefaultMintKeyfile = "mint-id.json"

	// DefaultClientKeyfile is the bench client's identity.
	DefaultClientKeyfile = "client-id.json"

	// LedgerSubdir is the ledger subtree that must exist and be non-empty
	// before a node starts.
	LedgerSubdir = "ledger"

	// LeaderConfigFile is the leader's published node descriptor.
	LeaderConfigFile = "leader.json"
)

// Collaborator executable names. Resolved against BinDir when set,
// otherwise against PATH.
const (
	FullnodeBin       = "hypercube-fullnode"
	FullnodeCudaBin   = "hypercube-fullnode-cuda"
	FullnodeConfigBin = "hypercube-fullnode-config"
	KeygenBin         = "hypercube-keygen"
	DroneBin          = "hypercube-drone"
	BenchBin          = "hypercube-bench-tps"
	RsyncBin          = "rsync"
	TmuxBin           = "tmux"
)

// Default configuration values.
const (
	DefaultLogLevel = "info"

	// DefaultGossipPort is the well-known port used to discover and join a
	// running cluster when the entry point omits one.
	DefaultGossipPort = 8001

	// DefaultBasePort is the reserved port the leader is known to bind;
	// derived validator ports must never equal it.
	DefaultBasePort = 9000

	// DefaultPortRange bounds the spread of derived validator ports.
	DefaultPortRange = 1000

	DefaultBenchDuration = 90 * time.Second

	// DefaultBenchThreads caps client threads regardless of available
	// hardware concurrency, to avoid saturating the host.
	DefaultBenchThreads = 4

	DefaultBenchNodeCount = 1

	DefaultMetricsRate = 10 * time.Second

	DefaultTmuxSession = "hypercube-bench"

	DefaultSyncMaxElapsed = 5 * time.Minute
)

// Config contains all the configuration properties of the cluster
// orchestrator. It is populated once, from flags, environment and an
// optional config file, at process start. Components receive it by value
// at construction and never read the ambient environment themselves.
type Config struct {
	// ConfigDir is the top-level directory for cluster configuration,
	// identities and the ledger.
	ConfigDir string `mapstructure:"config-dir"`

	// ValidatorDir is where a validator mirrors the leader's published
	// configuration. Defaults to a subdirectory of ConfigDir.
	ValidatorDir string `mapstructure:"config-validator-dir"`

	// PrivateDir holds generated identities and node descriptors that are
	// never synchronized between hosts. Defaults to a subdirectory of
	// ConfigDir.
	PrivateDir string `mapstructure:"config-private-dir"`

	// LogDir receives the per-level log files and the monitor sinks.
	LogDir string `mapstructure:"log-dir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// CUDA selects the hardware-accelerated fullnode variant. The choice
	// is made once per invocation.
	CUDA bool `mapstructure:"cuda"`

	// BinDir is an optional directory containing the collaborator
	// executables. When empty they are looked up on PATH.
	BinDir string `mapstructure:"bin-dir"`

	// MetricsEndpoint is the InfluxDB write endpoint. Empty disables
	// metrics submission; datapoints degrade to log lines.
	MetricsEndpoint string `mapstructure:"metrics-endpoint"`

	// MetricsDatabase is the InfluxDB database datapoints go to.
	MetricsDatabase string `mapstructure:"metrics-database"`

	// MetricsUsername and MetricsPassword authenticate against the
	// metrics endpoint.
	MetricsUsername string `mapstructure:"metrics-username"`
	MetricsPassword string `mapstructure:"metrics-password"`

	// MetricsRate is the flush interval of the metrics reporter.
	MetricsRate time.Duration `mapstructure:"metrics-rate"`

	// BasePort and PortRange parametrize derived port allocation for
	// self-configured validators.
	BasePort  int `mapstructure:"base-port"`
	PortRange int `mapstructure:"port-range"`

	// BenchDuration bounds one iteration of the bench client.
	BenchDuration time.Duration `mapstructure:"bench-duration"`

	// BenchThreads is the client thread count, capped at
	// DefaultBenchThreads.
	BenchThreads int `mapstructure:"bench-threads"`

	// BenchNodeCount is the number of nodes the bench client expects to
	// discover.
	BenchNodeCount int `mapstructure:"bench-nodes"`

	// TmuxSession names the detachable session the harness runs in.
	TmuxSession string `mapstructure:"tmux-session"`

	// NoTmux runs the harness directly in the invoking terminal.
	NoTmux bool `mapstructure:"no-tmux"`

	// SyncMaxElapsed bounds the retry wrapper around config
	// synchronization.
	SyncMaxElapsed time.Duration `mapstructure:"sync-max-elapsed"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		ConfigDir:       DefaultConfigDir(),
		ValidatorDir:    filepath.Join(DefaultConfigDir(), "validator"),
		PrivateDir:      filepath.Join(DefaultConfigDir(), "private"),
		LogDir:          filepath.Join(DefaultConfigDir(), "log"),
		LogLevel:        DefaultLogLevel,
		MetricsDatabase: "cluster",
		MetricsRate:     DefaultMetricsRate,
		BasePort:        DefaultBasePort,
		PortRange:       DefaultPortRange,
		BenchDuration:   DefaultBenchDuration,
		BenchThreads:    DefaultBenchThreads,
		BenchNodeCount:  DefaultBenchNodeCount,
		TmuxSession:     DefaultTmuxSession,
		SyncMaxElapsed:  DefaultSyncMaxElapsed,
	}

	return config
}

// SetConfigDir sets the top-level config directory, and updates the
// dependent directories if they are currently set to their defaults. If a
// dependent directory is not currently the default, the user has
// explicitly set it to something else, so avoid changing it again here.
func (c *Config) SetConfigDir(configDir string) {
	defaults := NewDefaultConfig()
	if c.ValidatorDir == defaults.ValidatorDir {
		c.ValidatorDir = filepath.Join(configDir, "validator")
	}
	if c.PrivateDir == defaults.PrivateDir {
		c.PrivateDir = filepath.Join(configDir, "private")
	}
	if c.LogDir == defaults.LogDir {
		c.LogDir = filepath.Join(configDir, "log")
	}
	c.ConfigDir = configDir
}

// Validate checks the invariants the rest of the system relies on.
func (c *Config) Validate() error {
	if c.ConfigDir == "" {
		return fmt.Errorf("config-dir is not set and no home directory could be determined")
	}
	if c.PortRange <= 0 {
		return fmt.Errorf("port-range must be positive, got %d", c.PortRange)
	}
	if c.BasePort <= 0 || c.BasePort > 65535-c.PortRange {
		return fmt.Errorf("base-port %d leaves no room for a range of %d", c.BasePort, c.PortRange)
	}
	if c.BenchThreads > DefaultBenchThreads {
		c.BenchThreads = DefaultBenchThreads
	}
	if c.BenchThreads <= 0 {
		c.BenchThreads = DefaultBenchThreads
	}
	return nil
}

// LeaderKeyfile returns the full path of the leader's identity file.
func (c *Config) LeaderKeyfile() string {
	return filepath.Join(c.ConfigDir, DefaultLeaderKeyfile)
}

// ValidatorKeyfile returns the full path of a pre-provisioned validator
// identity file.
func (c *Config) ValidatorKeyfile() string {
	return filepath.Join(c.ConfigDir, DefaultValidatorKeyfile)
}

// MintKeyfile returns the full path of the drone's funded identity file.
func (c *Config) MintKeyfile() string {
	return filepath.Join(c.PrivateDir, DefaultMintKeyfile)
}

// ClientKeyfile returns the full path of the bench client's identity file.
func (c *Config) ClientKeyfile() string {
	return filepath.Join(c.PrivateDir, DefaultClientKeyfile)
}

// LedgerDir returns the ledger subtree under a config directory.
func LedgerDir(configDir string) string {
	return filepath.Join(configDir, LedgerSubdir)
}

// LeaderConfig returns the path of the leader's published node descriptor
// under a config directory.
func LeaderConfig(configDir string) string {
	return filepath.Join(configDir, LeaderConfigFile)
}

// Bin resolves a collaborator executable name against BinDir, or leaves it
// to PATH lookup when BinDir is empty.
func (c *Config) Bin(name string) string {
	if c.BinDir == "" {
		return name
	}
	return filepath.Join(c.BinDir, name)
}

// FullnodeBinary returns the fullnode variant selected by the CUDA flag.
func (c *Config) FullnodeBinary() string {
	if c.CUDA {
		return c.Bin(FullnodeCudaBin)
	}
	return c.Bin(FullnodeBin)
}

// Logger returns a formatted logrus Entry with prefix set to "cluster".
// Info and debug lines are additionally routed to per-level files under
// LogDir, so raw child-process output never lands on the terminal's
// unbuffered stream.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if pathMap := c.logPathMap(); len(pathMap) > 0 {
			c.logger.Hooks.Add(lfshook.NewHook(pathMap, &logrus.TextFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "cluster")
}

func (c *Config) logPathMap() lfshook.PathMap {
	pathMap := lfshook.PathMap{}

	if c.LogDir == "" {
		return pathMap
	}
	if err := os.MkdirAll(c.LogDir, 0755); err != nil {
		return pathMap
	}

	for level, name := range map[logrus.Level]string{
		logrus.InfoLevel:  "cluster_info.log",
		logrus.DebugLevel: "cluster_debug.log",
		logrus.ErrorLevel: "cluster_error.log",
	} {
		p := filepath.Join(c.LogDir, name)
		if f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
			f.Close()
			pathMap[level] = p
		}
	}

	return pathMap
}

// DefaultConfigDir returns the default directory for top-level cluster
// config based on the underlying OS, attempting to respect conventions.
func DefaultConfigDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".hypercube")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Hypercube")
		} else {
			return filepath.Join(home, ".hypercube")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
