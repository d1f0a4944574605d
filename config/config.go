// Package config loads the configuration of a simulated node.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"mock-link/lib/logging"
	"mock-link/link/udpmock"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen           string        `yaml:"listen"`
	Workers          uint          `yaml:"workers"`
	RecvBufferSize   int           `yaml:"recv_buffer_size"`
	RecvRetryBackoff time.Duration `yaml:"recv_retry_backoff"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Peers   []PeerConfig  `yaml:"peers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type MetricsConfig struct {
	// Address serves /metrics when set.
	Address string `yaml:"address"`
}

// PeerConfig describes one simulated link.
type PeerConfig struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Disabled bool   `yaml:"disabled"`
}

func Default() *Config {
	return &Config{
		Listen:           "127.0.0.1:0",
		Workers:          4,
		RecvBufferSize:   udpmock.DefaultRecvBufferSize,
		RecvRetryBackoff: 10 * time.Millisecond,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it over the
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if _, err := netip.ParseAddrPort(c.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("listen: %v", err))
	}
	if c.Workers == 0 {
		errs = append(errs, "workers must be positive")
	}
	if c.RecvBufferSize <= 0 || c.RecvBufferSize > udpmock.DefaultRecvBufferSize {
		errs = append(errs, fmt.Sprintf("recv_buffer_size must be in (0, %d], got %d",
			udpmock.DefaultRecvBufferSize, c.RecvBufferSize))
	}
	if c.RecvRetryBackoff < 0 {
		errs = append(errs, "recv_retry_backoff must not be negative")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: must be text or json, got %q", c.Log.Format))
	}

	names := make(map[string]bool)
	addrs := make(map[netip.AddrPort]bool)
	for idx, p := range c.Peers {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("peers[%d]: name is required", idx))
		} else if names[p.Name] {
			errs = append(errs, fmt.Sprintf("peers[%d]: duplicate name %q", idx, p.Name))
		}
		names[p.Name] = true

		addr, err := netip.ParseAddrPort(p.Address)
		if err != nil {
			errs = append(errs, fmt.Sprintf("peers[%d]: address: %v", idx, err))
			continue
		}
		// Peers sharing an address would share one routing entry.
		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
		if addrs[addr] {
			errs = append(errs, fmt.Sprintf("peers[%d]: duplicate address %s", idx, addr))
		}
		addrs[addr] = true
	}

	if len(errs) > 0 {
		return errors.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ListenAddr assumes the config is valid.
func (c *Config) ListenAddr() netip.AddrPort {
	return netip.MustParseAddrPort(c.Listen)
}

// Addr assumes the config is valid.
func (p PeerConfig) Addr() netip.AddrPort {
	return netip.MustParseAddrPort(p.Address)
}

func (c *Config) ListenerOptions() udpmock.Options {
	return udpmock.Options{
		RecvBufferSize:   c.RecvBufferSize,
		RecvRetryBackoff: c.RecvRetryBackoff,
	}
}
