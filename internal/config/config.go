// Package config holds the server's file-backed configuration. Values come
// from an optional YAML file; the command line overrides individual fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Overflow policies for a bounded inbound queue.
const (
	OverflowBlock = "block"
	OverflowDrop  = "drop"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the TCP listen address for plain socket clients.
	Addr string `yaml:"addr"`

	// SSH enables the SSH transport when its Addr is non-empty.
	SSH struct {
		Addr    string `yaml:"addr"`
		HostKey string `yaml:"host_key"`
	} `yaml:"ssh"`

	// WS enables the WebSocket transport when its Addr is non-empty.
	WS struct {
		Addr string `yaml:"addr"`
	} `yaml:"ws"`

	// Queue bounds the inbound message queue. Zero capacity keeps it
	// unbounded, which is the default: handlers never wait on the
	// broadcaster.
	Queue struct {
		Capacity int    `yaml:"capacity"`
		Overflow string `yaml:"overflow"`
	} `yaml:"queue"`

	// WriteTimeout arms a deadline on each fan-out write. Zero disables
	// deadlines and a wedged peer can stall the broadcast pass.
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Duration is a time.Duration that YAML can spell as "250ms" or "5s".
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or a raw nanosecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("config: invalid duration %q", value.Value)
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{
		Addr: ":8080",
	}
	cfg.SSH.HostKey = "configs/ssh_host_ed25519"
	cfg.Queue.Overflow = OverflowBlock
	return cfg
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.Queue.Capacity < 0 {
		return fmt.Errorf("config: queue capacity must not be negative, got %d", c.Queue.Capacity)
	}
	switch c.Queue.Overflow {
	case OverflowBlock, OverflowDrop:
	default:
		return fmt.Errorf("config: unknown queue overflow policy %q", c.Queue.Overflow)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("config: write timeout must not be negative, got %s", c.WriteTimeout.Std())
	}
	return nil
}
