package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"backupmgr/internal/schedule"
)

// EnvPrefix prefixes environment overrides, e.g. BACKUPMGR_LOG_LEVEL.
const EnvPrefix = "BACKUPMGR"

// Config is the backup manager configuration.
type Config struct {
	Database    string       `mapstructure:"database"`  // registry SQLite file
	Retention   int          `mapstructure:"retention"` // entries kept per daily destination
	MaxParallel int          `mapstructure:"max_parallel"`
	Schedule    string       `mapstructure:"schedule"` // cron expression used by the daemon
	Log         LogConfig    `mapstructure:"log"`
	Path        PathConfig   `mapstructure:"path"`
	Status      StatusConfig `mapstructure:"status"`

	// File is the config file that was read, empty when only defaults applied.
	File string `mapstructure:"-"`
}

// NewConfig loads configuration from file and environment variables.
// configPath: path to the config file. If empty, looks for "backupmgr.yaml" in the current directory.
func NewConfig(_ context.Context, configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("backupmgr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.resolvePaths()

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "backup_tasks.sqlite")
	v.SetDefault("retention", 7)
	v.SetDefault("max_parallel", 0)
	v.SetDefault("schedule", "0 1 * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "backup_manager.log")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("path.mssql", "sqlcmd")
	v.SetDefault("path.mysql", "mysqldump")

	v.SetDefault("status.addr", "")
}

// resolvePaths anchors relative database and log paths at the config file's directory.
func (c *Config) resolvePaths() {
	if c.File == "" {
		return
	}
	base := filepath.Dir(c.File)
	c.Database = anchor(base, c.Database)
	switch strings.ToLower(c.Log.Path) {
	case "stdout", "stderr", "":
	default:
		c.Log.Path = anchor(base, c.Log.Path)
	}
}

func anchor(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("config: database is required"))
	}
	if c.Retention < 1 {
		errs = append(errs, fmt.Errorf("config: retention must be at least 1, got %d", c.Retention))
	}
	if c.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("config: max_parallel must be non-negative, got %d", c.MaxParallel))
	}
	if c.Schedule == "" {
		errs = append(errs, errors.New("config: schedule is required"))
	} else if err := schedule.Validate(c.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if c.Path.MSSQL == "" {
		errs = append(errs, errors.New("config: path.mssql is required"))
	}
	if c.Path.MySQL == "" {
		errs = append(errs, errors.New("config: path.mysql is required"))
	}
	return errors.Join(errs...)
}
