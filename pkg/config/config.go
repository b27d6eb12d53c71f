package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drone/envsubst"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/vfs"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

const (
	ENV_PORT      = "WEBREQUEST_PORT"
	ENV_LOG_LEVEL = "WEBREQUEST_LOG_LEVEL"

	DEFAULT_PORT             = 8080
	DEFAULT_HOST_PATH        = "/host"
	DEFAULT_SHUTDOWN_TIMEOUT = 20 * time.Second
	DEFAULT_LOG_LEVEL        = "info"
)

type Server struct {
	// Port 0 selects a free port.
	Port            *int             `json:"port,omitempty"`
	HostPath        *string          `json:"hostPath,omitempty"`
	ShutdownTimeout *metav1.Duration `json:"shutdownTimeout,omitempty"`
}

// Config is the configuration of the multiplexer daemon.
type Config struct {
	Server              Server                          `json:"server,omitempty"`
	LogLevel            *string                         `json:"logLevel,omitempty"`
	NotificationWorkers *int                            `json:"notificationWorkers,omitempty"`
	Resolvers           map[webrequest.EventType]string `json:"resolvers,omitempty"`
	Rules               []api.Rule                      `json:"rules,omitempty"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:            utils.Pointer(DEFAULT_PORT),
			HostPath:        utils.Pointer(DEFAULT_HOST_PATH),
			ShutdownTimeout: &metav1.Duration{Duration: DEFAULT_SHUTDOWN_TIMEOUT},
		},
		LogLevel:            utils.Pointer(DEFAULT_LOG_LEVEL),
		NotificationWorkers: utils.Pointer(0),
	}
}

func (c *Config) GetPort() int {
	return *utils.OptionalDefaulted(utils.Pointer(DEFAULT_PORT), c.Server.Port)
}

func (c *Config) GetHostPath() string {
	return *utils.OptionalDefaulted(utils.Pointer(DEFAULT_HOST_PATH), c.Server.HostPath)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeout == nil {
		return DEFAULT_SHUTDOWN_TIMEOUT
	}
	return c.Server.ShutdownTimeout.Duration
}

func (c *Config) GetLogLevel() string {
	return *utils.OptionalDefaulted(utils.Pointer(DEFAULT_LOG_LEVEL), c.LogLevel)
}

func (c *Config) GetNotificationWorkers() int {
	return *utils.OptionalDefaulted(utils.Pointer(0), c.NotificationWorkers)
}

// Read reads a configuration file. References to environment
// variables (${VAR}) are substituted before the file is parsed.
func Read(fs vfs.FileSystem, path string) (*Config, error) {
	return ReadWithEnv(fs, path, os.Getenv)
}

func ReadWithEnv(fs vfs.FileSystem, path string, env func(string) string) (*Config, error) {
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	cfg, err := Parse(data, env)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte, env func(string) string) (*Config, error) {
	s, err := envsubst.Eval(string(data), env)
	if err != nil {
		return nil, fmt.Errorf("cannot substitute environment: %w", err)
	}
	var cfg Config
	err = yaml.UnmarshalStrict([]byte(s), &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load provides the defaulted configuration composed of the given
// config files and the environment overrides.
func Load(fs vfs.FileSystem, paths ...string) (*Config, error) {
	return LoadWithEnv(fs, os.Getenv, paths...)
}

func LoadWithEnv(fs vfs.FileSystem, env func(string) string, paths ...string) (*Config, error) {
	cfg := Default()
	for _, p := range paths {
		add, err := ReadWithEnv(fs, p, env)
		if err != nil {
			return nil, err
		}
		log.Debug("merging config {{path}}", "path", p)
		Merge(cfg, add)
	}
	err := ApplyEnv(cfg, env)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Merge merges the settings of add into cfg. Values set in add
// override the ones in cfg, resolvers are merged per event type
// and rules are appended.
func Merge(cfg *Config, add *Config) {
	if add == nil {
		return
	}
	if add.Server.Port != nil {
		cfg.Server.Port = add.Server.Port
	}
	if add.Server.HostPath != nil {
		cfg.Server.HostPath = add.Server.HostPath
	}
	if add.Server.ShutdownTimeout != nil {
		cfg.Server.ShutdownTimeout = add.Server.ShutdownTimeout
	}
	if add.LogLevel != nil {
		cfg.LogLevel = add.LogLevel
	}
	if add.NotificationWorkers != nil {
		cfg.NotificationWorkers = add.NotificationWorkers
	}
	for e, r := range add.Resolvers {
		if cfg.Resolvers == nil {
			cfg.Resolvers = map[webrequest.EventType]string{}
		}
		cfg.Resolvers[e] = r
	}
	cfg.Rules = append(cfg.Rules, add.Rules...)
}

// ApplyEnv applies the environment overrides.
func ApplyEnv(cfg *Config, env func(string) string) error {
	if v := env(ENV_PORT); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", ENV_PORT, v, err)
		}
		cfg.Server.Port = utils.Pointer(p)
	}
	if v := env(ENV_LOG_LEVEL); v != "" {
		cfg.LogLevel = utils.Pointer(v)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if p := c.GetPort(); p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", p))
	}
	if !strings.HasPrefix(c.GetHostPath(), "/") {
		errs = append(errs, fmt.Errorf("host path %q must be absolute", c.GetHostPath()))
	}
	if c.GetShutdownTimeout() < 0 {
		errs = append(errs, fmt.Errorf("negative shutdown timeout"))
	}
	if _, err := logging.ParseLevel(c.GetLogLevel()); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.GetLogLevel()))
	}
	if c.GetNotificationWorkers() < 0 {
		errs = append(errs, fmt.Errorf("negative number of notification workers"))
	}
	for _, e := range utils.OrderedMapKeys(c.Resolvers) {
		if !e.HasCallback() {
			errs = append(errs, fmt.Errorf("resolver for %q: no callback event", e))
			continue
		}
		if _, err := webrequest.ResolverByName(c.Resolvers[e]); err != nil {
			errs = append(errs, fmt.Errorf("resolver for %q: %w", e, err))
		}
	}
	names := map[string]bool{}
	for i := range c.Rules {
		r := &c.Rules[i]
		if names[r.Name] {
			errs = append(errs, fmt.Errorf("duplicate rule %q", r.Name))
		}
		names[r.Name] = true
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
