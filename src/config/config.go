package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mosaicnetworks/presence/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultConfigFile is the name of the optional configuration file read
	// from the data directory.
	DefaultConfigFile = "presence"

	// DefaultLogFile is the name, inside the data directory, that
	// LogFilePath returns when LogFile is unset.
	DefaultLogFile = "presence.log"
)

// Default configuration values.
const (
	DefaultLogLevel     = "debug"
	DefaultMoniker      = "presence"
	DefaultMaxDeltaSize = 100
)

// Config contains all the configuration properties of a presence shard.
type Config struct {
	// DataDir is the top-level directory containing configuration and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, duplicates log output to a file via a hook.
	LogFile string `mapstructure:"log-file"`

	// Moniker is the identity of the local replica within the cluster. It
	// must be unique across the cluster.
	Moniker string `mapstructure:"moniker"`

	// MaxDeltaSize is the delta weight at or above which the shard advises its
	// host to flush the pending delta instead of letting it grow until the
	// next scheduled gossip round.
	MaxDeltaSize int `mapstructure:"max-delta-size"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:      DefaultDataDir(),
		LogLevel:     DefaultLogLevel,
		Moniker:      DefaultMoniker,
		MaxDeltaSize: DefaultMaxDeltaSize,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// Load overlays the presence.toml file from datadir, if present, and any
// PRESENCE_* environment variables onto the default configuration.
func Load(datadir string) (*Config, error) {
	config := NewDefaultConfig()

	if datadir != "" {
		config.DataDir = datadir
	}

	v := viper.New()
	v.AddConfigPath(config.DataDir)
	v.SetConfigName(DefaultConfigFile)
	v.SetEnvPrefix("presence")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Bind every option explicitly so that an environment variable applies
	// even when the option is absent from the file.
	for _, key := range []string{"datadir", "log", "log-file", "moniker", "max-delta-size"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}

	return config, nil
}

// SetDataDir sets the top-level presence directory.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
}

// LogFilePath returns the full path of the log file, defaulting to
// presence.log inside the data directory.
func (c *Config) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, DefaultLogFile)
}

// Logger returns a formatted logrus Entry, with prefix set to the moniker.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				if level <= c.logger.Level {
					pathMap[level] = c.LogFilePath()
				}
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				new(prefixed.TextFormatter),
			))
		}
	}
	return c.logger.WithField("prefix", c.Moniker)
}

// DefaultDataDir return the default directory name for top-level presence
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Presence")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Presence")
		} else {
			return filepath.Join(home, ".presence")
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
