// Package config loads server settings from an optional YAML file and command-line flags.
// Flags given explicitly on the command line win over the file.
package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	ProposerRandom = "random"
	ProposerRemote = "remote"
)

type Config struct {
	Dev      bool           `yaml:"dev"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	PID      PIDConfig      `yaml:"pid"`
	Proposer ProposerConfig `yaml:"proposer"`
	Queue    QueueConfig    `yaml:"queue"`
}

type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig enables SQLite persistence when Path is set
type StorageConfig struct {
	Path string `yaml:"path"`
}

type PIDConfig struct {
	Path string `yaml:"path"`
	Lock bool   `yaml:"lock"`
}

// ProposerConfig selects where opponent moves come from. The API key itself never
// lives in the file, only the name of the environment variable holding it.
type ProposerConfig struct {
	Default   string `yaml:"default"`
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Seed      uint64 `yaml:"seed"`
}

type QueueConfig struct {
	Workers     int `yaml:"workers"`
	ThinkTimeMs int `yaml:"think_time_ms"`
}

func Default() *Config {
	return &Config{
		API: APIConfig{
			Host: "localhost",
			Port: 8080,
		},
		Proposer: ProposerConfig{
			Default:   ProposerRandom,
			APIKeyEnv: "PROPOSER_API_KEY",
			TimeoutMs: 10000,
		},
		Queue: QueueConfig{
			Workers:     2,
			ThinkTimeMs: 10000,
		},
	}
}

// Load reads a YAML file over the defaults; unknown keys are rejected
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse builds the configuration from args: defaults, then the -config file, then flags
func Parse(name string, args []string) (*Config, error) {
	// First pass only finds the config file
	pre := flag.NewFlagSet(name, flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	configPath := pre.String("config", "", "")
	Default().bind(pre)
	if err := pre.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flag defaults now hold the file values, so only explicit flags change them
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", *configPath, "Path to YAML config file")
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.API.Host, "api-host", c.API.Host, "API server host")
	fs.IntVar(&c.API.Port, "api-port", c.API.Port, "API server port")
	fs.BoolVar(&c.Dev, "dev", c.Dev, "Development mode (relaxed rate limits, fixed JWT secret)")
	fs.StringVar(&c.Storage.Path, "storage-path", c.Storage.Path, "Path to SQLite database file (disables persistence if empty)")
	fs.StringVar(&c.PID.Path, "pid", c.PID.Path, "Optional path to write PID file")
	fs.BoolVar(&c.PID.Lock, "pid-lock", c.PID.Lock, "Lock PID file to allow only one instance (requires -pid)")
	fs.StringVar(&c.Proposer.Default, "proposer", c.Proposer.Default, "Default opponent proposer (random|remote)")
	fs.StringVar(&c.Proposer.Endpoint, "proposer-endpoint", c.Proposer.Endpoint, "Remote proposer URL")
	fs.StringVar(&c.Proposer.Model, "proposer-model", c.Proposer.Model, "Model name sent to the remote proposer")
	fs.StringVar(&c.Proposer.APIKeyEnv, "proposer-key-env", c.Proposer.APIKeyEnv, "Environment variable holding the remote proposer API key")
	fs.IntVar(&c.Proposer.TimeoutMs, "proposer-timeout-ms", c.Proposer.TimeoutMs, "Remote proposer request timeout in milliseconds")
	fs.Uint64Var(&c.Proposer.Seed, "seed", c.Proposer.Seed, "Seed for the random proposer (0 uses the clock)")
	fs.IntVar(&c.Queue.Workers, "workers", c.Queue.Workers, "Proposer worker count")
	fs.IntVar(&c.Queue.ThinkTimeMs, "think-time-ms", c.Queue.ThinkTimeMs, "Default time budget per opponent move in milliseconds")
}

func (c *Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.PID.Lock && c.PID.Path == "" {
		return fmt.Errorf("pid lock requires a pid path")
	}

	switch c.Proposer.Default {
	case ProposerRandom:
	case ProposerRemote:
		if c.Proposer.Endpoint == "" {
			return fmt.Errorf("remote proposer requires an endpoint")
		}
	default:
		return fmt.Errorf("unknown proposer %q", c.Proposer.Default)
	}

	if c.Proposer.Endpoint != "" {
		u, err := url.Parse(c.Proposer.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid proposer endpoint %q", c.Proposer.Endpoint)
		}
	}
	if c.Proposer.TimeoutMs < 100 {
		return fmt.Errorf("proposer timeout must be at least 100ms")
	}
	if c.Queue.Workers < 1 || c.Queue.Workers > 32 {
		return fmt.Errorf("workers must be between 1 and 32, got %d", c.Queue.Workers)
	}
	if c.Queue.ThinkTimeMs < 100 {
		return fmt.Errorf("think time must be at least 100ms")
	}
	return nil
}

func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// APIKey reads the remote proposer key from the configured environment variable
func (c *Config) APIKey() string {
	if c.Proposer.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Proposer.APIKeyEnv)
}

func (c *Config) ProposerTimeout() time.Duration {
	return time.Duration(c.Proposer.TimeoutMs) * time.Millisecond
}

func (c *Config) ThinkTime() time.Duration {
	return time.Duration(c.Queue.ThinkTimeMs) * time.Millisecond
}

// RemoteEnabled reports whether a remote proposer can be offered to games
func (c *Config) RemoteEnabled() bool {
	return c.Proposer.Endpoint != ""
}
