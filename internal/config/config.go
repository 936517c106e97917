// Package config loads the optional YAML configuration file accepted by
// cmd/nidcore's -config flag, in the teacher's loadConfig style:
// unmarshal, then fill in defaults for anything left zero.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full nidcore configuration. Every field has a usable
// zero-value default, so an empty or absent config file still produces a
// working pipeline listening on its CLI-flag-selected capture source.
type Config struct {
	Capture struct {
		BPFFilter string `yaml:"bpf_filter"`
	} `yaml:"capture"`

	Flow struct {
		IdleTimeout    time.Duration `yaml:"idle_timeout"`
		MaxActiveFlows int           `yaml:"max_active_flows"`
		SweepInterval  time.Duration `yaml:"sweep_interval"`
	} `yaml:"flow"`

	Rules struct {
		RuleFile string `yaml:"rule_file"`
	} `yaml:"rules"`

	Publish struct {
		Enabled      bool   `yaml:"enabled"`
		TCPBusListen string `yaml:"tcp_bus_listen"`
		AMQPURL      string `yaml:"amqp_url"`
		AMQPExchange string `yaml:"amqp_exchange"`
	} `yaml:"publish"`

	Alerts struct {
		JSONLPath string `yaml:"jsonl_path"`
	} `yaml:"alerts"`

	Storage struct {
		Enabled       bool          `yaml:"enabled"`
		Host          string        `yaml:"host"`
		Port          int           `yaml:"port"`
		Database      string        `yaml:"database"`
		User          string        `yaml:"user"`
		Password      string        `yaml:"password"`
		PoolSize      int           `yaml:"pool_size"`
		BufferSize    int           `yaml:"buffer_size"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"storage"`

	Monitoring struct {
		StatsInterval time.Duration `yaml:"stats_interval"`
	} `yaml:"monitoring"`
}

// Load reads and parses path, filling in defaults for any zero-valued
// field afterward.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns a Config with every default applied and no file read,
// for callers that omit -config entirely.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Flow.IdleTimeout == 0 {
		cfg.Flow.IdleTimeout = 120 * time.Second
	}
	if cfg.Flow.MaxActiveFlows == 0 {
		cfg.Flow.MaxActiveFlows = 100_000
	}
	if cfg.Flow.SweepInterval == 0 {
		cfg.Flow.SweepInterval = 10 * time.Second
	}
	if cfg.Publish.TCPBusListen == "" {
		cfg.Publish.TCPBusListen = ":5555"
	}
	if cfg.Publish.AMQPExchange == "" {
		cfg.Publish.AMQPExchange = "nidcore.features"
	}
	if cfg.Alerts.JSONLPath == "" {
		cfg.Alerts.JSONLPath = "alerts.jsonl"
	}
	if cfg.Storage.PoolSize == 0 {
		cfg.Storage.PoolSize = 10
	}
	if cfg.Storage.BufferSize == 0 {
		cfg.Storage.BufferSize = 1000
	}
	if cfg.Storage.FlushInterval == 0 {
		cfg.Storage.FlushInterval = 5 * time.Second
	}
	if cfg.Monitoring.StatsInterval == 0 {
		cfg.Monitoring.StatsInterval = 5 * time.Second
	}
}
