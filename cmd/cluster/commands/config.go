package commands

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//AddRunFlags adds the flags shared by every role command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("config-dir", _config.ConfigDir, "Top-level directory for cluster configuration and data")
	cmd.Flags().String("config-validator-dir", _config.ValidatorDir, "Directory a validator mirrors the leader's config into")
	cmd.Flags().String("config-private-dir", _config.PrivateDir, "Directory for generated identities, never synchronized")
	cmd.Flags().String("log-dir", _config.LogDir, "Directory for log files")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("bin-dir", _config.BinDir, "Directory containing the node executables (default: PATH lookup)")
	cmd.Flags().Bool("cuda", _config.CUDA, "Run the hardware-accelerated fullnode variant")

	// Metrics
	cmd.Flags().String("metrics-endpoint", _config.MetricsEndpoint, "InfluxDB write endpoint (empty disables submission)")
	cmd.Flags().String("metrics-database", _config.MetricsDatabase, "InfluxDB database")
	cmd.Flags().String("metrics-username", _config.MetricsUsername, "InfluxDB username")
	cmd.Flags().String("metrics-password", _config.MetricsPassword, "InfluxDB password")
	cmd.Flags().Duration("metrics-rate", _config.MetricsRate, "Metrics flush interval")

	// Ports
	cmd.Flags().Int("base-port", _config.BasePort, "Reserved base port for derived port allocation")
	cmd.Flags().Int("port-range", _config.PortRange, "Spread of derived validator ports above the base")
}

// Bind all flags, pull in the environment and read the config into viper.
// The config object is populated once here; components never read ambient
// environment state directly.
func loadConfig(cmd *cobra.Command, args []string) error {

	// Register flags with viper. Include flags from this command and all
	// other persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// HYPERCUBE_CONFIG_DIR, HYPERCUBE_CUDA, HYPERCUBE_METRICS_ENDPOINT...
	viper.SetEnvPrefix("hypercube")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// first unmarshal to read from CLI flags and environment
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// If --config-dir was explicitly set, the dependent directories that
	// are still at their defaults follow it
	_config.SetConfigDir(_config.ConfigDir)

	// look for a config file in [config-dir]/cluster.toml (.json, .yaml
	// also work)
	viper.SetConfigName("cluster")
	viper.AddConfigPath(_config.ConfigDir)

	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.ConfigDir)
	} else {
		return err
	}

	// second unmarshal to read from the config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	if err := _config.Validate(); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"config-dir":           _config.ConfigDir,
		"config-validator-dir": _config.ValidatorDir,
		"config-private-dir":   _config.PrivateDir,
		"log-dir":              _config.LogDir,
		"log":                  _config.LogLevel,
		"bin-dir":              _config.BinDir,
		"cuda":                 _config.CUDA,
		"base-port":            _config.BasePort,
		"port-range":           _config.PortRange,
	}
	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
