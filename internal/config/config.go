package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/go-sql-driver/mysql"
)

const (
	appName       = "bloodbank"
	storeFileName = "bloodDatabase"

	BackendFile  = "file"
	BackendRedis = "redis"

	DefaultListenAddress = ":9898"
	DefaultRedisAddress  = "localhost:6379"
	DefaultRedisKey      = "bloodbank:stock"
	DefaultLogLevel      = "info"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ListenAddress string
	Store         StoreConfig
	Redis         RedisConfig
	Journal       JournalConfig
	Admin         AdminConfig
	LogLevel      string
}

type StoreConfig struct {
	Backend string
	Path    string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// JournalConfig enables the MySQL adjustment journal when MySQLDSN is set.
type JournalConfig struct {
	MySQLDSN  string
	Workers   int
	QueueSize int
}

func (j JournalConfig) Enabled() bool {
	return j.MySQLDSN != ""
}

// AdminConfig addresses are optional; an empty address disables the endpoint.
type AdminConfig struct {
	HTTPAddress string
	GRPCAddress string
}

func Default() Config {
	return Config{
		ListenAddress: DefaultListenAddress,
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    DefaultStorePath(),
		},
		Redis: RedisConfig{
			Address: DefaultRedisAddress,
			Key:     DefaultRedisKey,
		},
		Journal: JournalConfig{
			Workers:   2,
			QueueSize: 1024,
		},
		LogLevel: DefaultLogLevel,
	}
}

// DefaultStorePath is the per-user inventory file.
//
//	Linux:   $XDG_DATA_HOME/bloodbank/bloodDatabase
//	macOS:   ~/Library/Application Support/bloodbank/bloodDatabase
func DefaultStorePath() string {
	return filepath.Join(xdg.DataHome, appName, storeFileName)
}

// DefaultConfigPath is where Load looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

type fileConfig struct {
	ListenAddress string `toml:"listen_address"`
	Store         struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
	} `toml:"store"`
	Redis struct {
		Address  string `toml:"address"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Key      string `toml:"key"`
	} `toml:"redis"`
	Journal struct {
		MySQLDSN  string `toml:"mysql_dsn"`
		Workers   int    `toml:"workers"`
		QueueSize int    `toml:"queue_size"`
	} `toml:"journal"`
	Admin struct {
		HTTPAddress string `toml:"http_address"`
		GRPCAddress string `toml:"grpc_address"`
	} `toml:"admin"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load layers the TOML file at path over Default. Only keys present in the
// file override defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("listen_address") {
		cfg.ListenAddress = strings.TrimSpace(raw.ListenAddress)
	}
	if meta.IsDefined("store", "backend") {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(raw.Store.Backend))
	}
	if meta.IsDefined("store", "path") {
		cfg.Store.Path = strings.TrimSpace(raw.Store.Path)
	}
	if meta.IsDefined("redis", "address") {
		cfg.Redis.Address = strings.TrimSpace(raw.Redis.Address)
	}
	if meta.IsDefined("redis", "password") {
		cfg.Redis.Password = raw.Redis.Password
	}
	if meta.IsDefined("redis", "db") {
		cfg.Redis.DB = raw.Redis.DB
	}
	if meta.IsDefined("redis", "key") {
		cfg.Redis.Key = strings.TrimSpace(raw.Redis.Key)
	}
	if meta.IsDefined("journal", "mysql_dsn") {
		cfg.Journal.MySQLDSN = strings.TrimSpace(raw.Journal.MySQLDSN)
	}
	if meta.IsDefined("journal", "workers") {
		cfg.Journal.Workers = raw.Journal.Workers
	}
	if meta.IsDefined("journal", "queue_size") {
		cfg.Journal.QueueSize = raw.Journal.QueueSize
	}
	if meta.IsDefined("admin", "http_address") {
		cfg.Admin.HTTPAddress = strings.TrimSpace(raw.Admin.HTTPAddress)
	}
	if meta.IsDefined("admin", "grpc_address") {
		cfg.Admin.GRPCAddress = strings.TrimSpace(raw.Admin.GRPCAddress)
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}

	return cfg, nil
}

// Validate checks cross-field constraints and normalizes the journal DSN so
// timestamps scan into time.Time.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("%w: listen_address is empty", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is empty", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("%w: redis.address is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Journal.Enabled() {
		if c.Journal.Workers < 1 {
			return fmt.Errorf("%w: journal.workers must be at least 1", ErrInvalidConfig)
		}
		if c.Journal.QueueSize < 1 {
			return fmt.Errorf("%w: journal.queue_size must be at least 1", ErrInvalidConfig)
		}
		dsn, err := mysql.ParseDSN(c.Journal.MySQLDSN)
		if err != nil {
			return fmt.Errorf("%w: journal.mysql_dsn: %v", ErrInvalidConfig, err)
		}
		dsn.ParseTime = true
		c.Journal.MySQLDSN = dsn.FormatDSN()
	}

	return nil
}
