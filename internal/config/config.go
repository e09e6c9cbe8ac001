// Package config loads runtail settings from defaults, an optional YAML file,
// a .env file and RUNTAIL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RUNTAIL"

// Config holds client and reference-server settings.
type Config struct {
	Endpoint     string        `yaml:"endpoint" mapstructure:"endpoint"`
	RPCPath      string        `yaml:"rpc_path" mapstructure:"rpc_path"`
	StreamPath   string        `yaml:"stream_path" mapstructure:"stream_path"`
	Namespace    string        `yaml:"namespace" mapstructure:"namespace"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts" mapstructure:"poll_attempts"`
	NewRunsOnly  bool          `yaml:"new_runs_only" mapstructure:"new_runs_only"`
	CallTimeout  time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	ExportDir    string        `yaml:"export_dir" mapstructure:"export_dir"`
	HistoryFile  string        `yaml:"history_file" mapstructure:"history_file"`
	LogLevel     string        `yaml:"log_level" mapstructure:"log_level"`
	LogFile      string        `yaml:"log_file" mapstructure:"log_file"`
	Server       ServerConfig  `yaml:"server" mapstructure:"server"`
}

// ServerConfig configures `runtail serve`.
type ServerConfig struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	GitHubToken string `yaml:"github_token" mapstructure:"github_token"`
	Owner       string `yaml:"owner" mapstructure:"owner"`
	Repo        string `yaml:"repo" mapstructure:"repo"`
	Host        string `yaml:"host" mapstructure:"host"`
	// LogSource is "api" for the run log archive or "gh" for `gh run view --log`.
	LogSource string `yaml:"log_source" mapstructure:"log_source"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Endpoint:     "http://localhost:8080",
		RPCPath:      "/jsonrpc",
		StreamPath:   "/stream/logs",
		Namespace:    "github",
		PollInterval: time.Second,
		PollAttempts: 20,
		CallTimeout:  30 * time.Second,
		ExportDir:    ".",
		HistoryFile:  filepath.Join(configDir(), "history.yaml"),
		LogLevel:     "info",
		Server: ServerConfig{
			Addr:      ":8080",
			Host:      "github.com",
			LogSource: "api",
		},
	}
}

// DefaultPath is the config file read when none is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gh-runtail"
	}
	return filepath.Join(dir, "gh-runtail")
}

// Options selects the sources Load reads.
type Options struct {
	// File is a YAML config file. A missing file is only an error when
	// Required is set.
	File     string
	Required bool
	// EnvFile is a dotenv file loaded into the process environment. Missing
	// files are skipped.
	EnvFile string
	// Flags, when set, override every other source for flags the user changed.
	// Flag names are config keys with dashes, e.g. poll-interval or server-addr.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := readFile(opts.File, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) || opts.Required {
				return Config{}, err
			}
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
	bindEnv(v, "server.github_token", "RUNTAIL_SERVER_GITHUB_TOKEN", "RUNTAIL_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN")
	bindEnv(v, "server.owner", "RUNTAIL_SERVER_OWNER", "GITHUB_OWNER")
	bindEnv(v, "server.repo", "RUNTAIL_SERVER_REPO", "GITHUB_REPO")

	if opts.Flags != nil {
		for key := range flatten(cfg) {
			if f := opts.Flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var out Config
	if err := v.Unmarshal(&out); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}

// flagName maps a config key to its command-line flag.
func flagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// flatten lists every setting under its viper key.
func flatten(cfg Config) map[string]any {
	return map[string]any{
		"endpoint":            cfg.Endpoint,
		"rpc_path":            cfg.RPCPath,
		"stream_path":         cfg.StreamPath,
		"namespace":           cfg.Namespace,
		"poll_interval":       cfg.PollInterval,
		"poll_attempts":       cfg.PollAttempts,
		"new_runs_only":       cfg.NewRunsOnly,
		"call_timeout":        cfg.CallTimeout,
		"export_dir":          cfg.ExportDir,
		"history_file":        cfg.HistoryFile,
		"log_level":           cfg.LogLevel,
		"log_file":            cfg.LogFile,
		"server.addr":         cfg.Server.Addr,
		"server.github_token": cfg.Server.GitHubToken,
		"server.owner":        cfg.Server.Owner,
		"server.repo":         cfg.Server.Repo,
		"server.host":         cfg.Server.Host,
		"server.log_source":   cfg.Server.LogSource,
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	if c.PollAttempts < 1 {
		errs = append(errs, fmt.Errorf("poll_attempts must be at least 1, got %d", c.PollAttempts))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must not be negative, got %s", c.PollInterval))
	}
	switch c.Server.LogSource {
	case "api", "gh":
	default:
		errs = append(errs, fmt.Errorf("server.log_source must be api or gh, got %q", c.Server.LogSource))
	}
	return errors.Join(errs...)
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.Server.GitHubToken = ""
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
