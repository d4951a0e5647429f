// Package config loads settings from defaults, an optional .scrumlr config
// file, a .env file and SCRUMLR_* environment variables, in increasing order
// of precedence. Command line flags bound to the same keys win over all of them.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/CrowderSoup/scrumlr-sync/dnd"
)

// Keys
const (
	KeyServer          = "server"
	KeyRealtime        = "realtime"
	KeyTimeout         = "timeout"
	KeyDataDir         = "data_dir"
	KeyDatabase        = "database"
	KeyMirrorAddr      = "mirror.addr"
	KeyMirrorSecret    = "mirror.secret"
	KeyCombineThresh   = "dnd.combine_threshold"
	KeyMoveThresh      = "dnd.move_threshold"
	KeySnapshotPeriod  = "snapshot_interval"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	envPrefix          = "SCRUMLR"
	configName         = ".scrumlr"
	configPathOverride = "SCRUMLR_CONFIG_PATH"
)

type Config struct {
	Server           string
	Realtime         string
	Timeout          time.Duration
	DataDir          string
	Database         string
	SnapshotInterval time.Duration
	Mirror           MirrorConfig
	Thresholds       dnd.Thresholds
	Log              LogConfig
}

type MirrorConfig struct {
	Addr   string
	Secret string
}

type LogConfig struct {
	Level  string
	Format string
}

// New returns a viper instance with every default set
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyServer, "http://localhost:8080")
	v.SetDefault(KeyRealtime, "")
	v.SetDefault(KeyTimeout, "15s")
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyDatabase, "")
	v.SetDefault(KeySnapshotPeriod, "30s")
	v.SetDefault(KeyMirrorAddr, "127.0.0.1:3001")
	v.SetDefault(KeyMirrorSecret, "")
	v.SetDefault(KeyCombineThresh, dnd.DefaultThresholds.Combine)
	v.SetDefault(KeyMoveThresh, dnd.DefaultThresholds.Move)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetConfigName(configName) // .yaml is implicit
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(configPathOverride); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	return v
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".scrumlr")
	}
	return ".scrumlr"
}

// Load reads the config file, if any, and returns the resolved settings
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server:           strings.TrimSuffix(v.GetString(KeyServer), "/"),
		Realtime:         v.GetString(KeyRealtime),
		Timeout:          v.GetDuration(KeyTimeout),
		DataDir:          v.GetString(KeyDataDir),
		Database:         v.GetString(KeyDatabase),
		SnapshotInterval: v.GetDuration(KeySnapshotPeriod),
		Mirror: MirrorConfig{
			Addr:   v.GetString(KeyMirrorAddr),
			Secret: v.GetString(KeyMirrorSecret),
		},
		Thresholds: dnd.Thresholds{
			Combine: v.GetFloat64(KeyCombineThresh),
			Move:    v.GetFloat64(KeyMoveThresh),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.DataDir, "scrumlr.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("config: server is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("config: snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// PreferencesDir is where per-user preferences are kept
func (c *Config) PreferencesDir() string {
	return filepath.Join(c.DataDir, "preferences")
}

// Logger configures a logger writing to out
func (c *Config) Logger(out io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(out)
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		l.SetLevel(level)
	}
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(l)
}

// LoadEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func LoadEnv(filename string) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(filename)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading %s: %w", filename, err)
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
