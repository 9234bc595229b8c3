// Package config carries the file-backed settings for the sysmon
// server: the listen address and the optional MQTT telemetry sink.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full sysmon configuration. Every field has a default;
// a YAML file overrides the defaults and command-line flags override
// the file.
type Config struct {
	// Host is the address the HTTP server binds to.
	Host string `yaml:"host"`
	// Port is the TCP port the HTTP server binds to.
	Port int `yaml:"port"`
	// MQTT configures the optional telemetry publisher.
	MQTT MQTT `yaml:"mqtt"`
}

// MQTT holds the telemetry publisher settings, disabled by default.
type MQTT struct {
	Enabled bool `yaml:"enabled"`
	// Broker is the broker URL, e.g. "tcp://broker.local:1883".
	Broker string `yaml:"broker"`
	// ClientID is derived from the hostname when empty.
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// TopicPrefix is the first topic segment; stats are published to
	// "<prefix>/<hostname>/stats".
	TopicPrefix string `yaml:"topic_prefix"`
}

// Default returns the built-in configuration: the dashboard on
// 127.0.0.1:5000 and telemetry off.
func Default() *Config {
	return &Config{
		Host: "127.0.0.1",
		Port: 5000,
		MQTT: MQTT{
			Broker:      "tcp://127.0.0.1:1883",
			TopicPrefix: "sysmon",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or
// a missing file yields the defaults unchanged; an unreadable or
// malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
