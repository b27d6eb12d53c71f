package app

import (
	"os"
	"path/filepath"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

const ENV_SERVER = "WEBREQUEST_SERVER"

const DEFAULT_SERVER = "http://localhost:8080"

const CONFIG_FILE = ".wrctl"

type Config struct {
	Server *string `json:"server,omitempty"`
}

// GetConfig reads the client configuration from the .wrctl files
// in the home directory, the user config directory and the current
// directory. The environment overrides the configured server.
func GetConfig(fs vfs.FileSystem, env func(string) string) *Config {
	var cfg Config

	dir, err := os.UserHomeDir()
	if err == nil {
		MergeConfig(&cfg, ReadConfig(fs, filepath.Join(dir, CONFIG_FILE)))
	}
	dir, err = os.UserConfigDir()
	if err == nil {
		MergeConfig(&cfg, ReadConfig(fs, filepath.Join(dir, CONFIG_FILE)))
	}
	MergeConfig(&cfg, ReadConfig(fs, CONFIG_FILE))

	if v := env(ENV_SERVER); v != "" {
		cfg.Server = utils.Pointer(v)
	}
	if cfg.Server == nil || *cfg.Server == "" {
		cfg.Server = utils.Pointer(DEFAULT_SERVER)
	}
	return &cfg
}

func ReadConfig(fs vfs.FileSystem, path string) *Config {
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil
	}
	return &cfg
}

func MergeConfig(cfg *Config, add *Config) {
	if add == nil {
		return
	}
	if add.Server != nil {
		cfg.Server = add.Server
	}
}
