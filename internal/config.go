package internal

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Storage modes.
const (
	StorageMemory  = "memory"
	StorageLog     = "log"
	StorageLevelDB = "leveldb"
)

type StorageConfig struct {
	Mode    string `mapstructure:"mode"`
	Workdir string `mapstructure:"workdir"`
	// Sync fsyncs every log write.
	Sync bool `mapstructure:"sync"`
	// CompactRatio triggers log compaction on open once garbage/size reaches it.
	// Zero disables it.
	CompactRatio float64 `mapstructure:"compact_ratio"`
	// CacheEntries sizes the log store read cache. Zero disables it.
	CacheEntries int `mapstructure:"cache_entries"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	Debug       bool   `mapstructure:"debug"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables rotated file output instead of stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type Config struct {
	AppName string        `mapstructure:"app_name"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "kvsql")

	v.SetDefault("storage.mode", StorageMemory)
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.sync", false)
	v.SetDefault("storage.compact_ratio", 0.5)
	v.SetDefault("storage.cache_entries", 1024)

	v.SetDefault("server.addr", "127.0.0.1:9876")
	v.SetDefault("server.metrics_addr", "")
	v.SetDefault("server.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 64)
	v.SetDefault("log.max_backups", 3)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KVSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfig returns the built-in defaults, ignoring files and env.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// LoadConfig reads a YAML file at path, overlaid by KVSQL_* env vars. With an
// empty path only defaults and env are used.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case StorageMemory:
	case StorageLog, StorageLevelDB:
		if c.Storage.Workdir == "" {
			return errors.Errorf("storage.workdir is required for mode %q", c.Storage.Mode)
		}
	default:
		return errors.Errorf("unknown storage.mode %q", c.Storage.Mode)
	}
	if c.Storage.CompactRatio < 0 || c.Storage.CompactRatio > 1 {
		return errors.Errorf("storage.compact_ratio must be within [0, 1], got %v", c.Storage.CompactRatio)
	}
	if c.Storage.CacheEntries < 0 {
		return errors.Errorf("storage.cache_entries must not be negative, got %d", c.Storage.CacheEntries)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
