package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stack21/flowengine/internal/engine"
	"github.com/stack21/flowengine/internal/scheduler"
	"github.com/stack21/flowengine/internal/store"
)

// Config holds all flowengine configuration.
// Priority: flags > env vars (FLOWENGINE_*) > flowengine.yaml > defaults.
type Config struct {
	Storage struct {
		Driver string `mapstructure:"driver"`
		Dir    string `mapstructure:"dir"`
		DBPath string `mapstructure:"db_path"`
	} `mapstructure:"storage"`
	Server struct {
		ListenAddr string `mapstructure:"listen_addr"`
	} `mapstructure:"server"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	HTTP struct {
		Timeout         time.Duration `mapstructure:"timeout"`
		MaxResponseBody int64         `mapstructure:"max_response_body"`
	} `mapstructure:"http"`
	Scheduler struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"scheduler"`
	Dispatcher struct {
		PoolSize int `mapstructure:"pool_size"`
	} `mapstructure:"dispatcher"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", store.DriverJSON)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.db_path", "")
	v.SetDefault("server.listen_addr", ":4100")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_response_body", 10*1024*1024)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", scheduler.DefaultInterval)
	v.SetDefault("dispatcher.pool_size", engine.DefaultPoolSize)
}

// loadConfig reads configuration into v. file may be empty, in which case
// flowengine.yaml is looked up in the working directory and
// $HOME/.flowengine; a missing file is not an error.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("FLOWENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("flowengine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".flowengine"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case store.DriverJSON, store.DriverLibSQL:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", store.DriverJSON, store.DriverLibSQL, c.Storage.Driver)
	}
	if c.Dispatcher.PoolSize < 1 {
		return fmt.Errorf("dispatcher.pool_size must be at least 1, got %d", c.Dispatcher.PoolSize)
	}
	return nil
}

func (c *Config) storeConfig() store.Config {
	return store.Config{
		Driver: c.Storage.Driver,
		Dir:    c.Storage.Dir,
		DBPath: c.Storage.DBPath,
	}
}
