package config

import "strings"

// Config represents the persistent respchat configuration stored as
// config.toml in the .respchat/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Relay       RelayConfig       `toml:"relay"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Client      ClientConfig      `toml:"client"`
	Eventstream EventstreamConfig `toml:"eventstream"`
}

// RelayConfig holds relay server settings.
type RelayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UpstreamConfig holds Responses API provider settings. The API key is
// normally provided through the environment (RESPCHAT_UPSTREAM_API_KEY)
// rather than the file.
type UpstreamConfig struct {
	URL    string `toml:"url,omitempty"`
	Model  string `toml:"model,omitempty"`
	APIKey string `toml:"api_key,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// relay (e.g. respchat chat). The value is a full URL (scheme + host + port).
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// EventstreamConfig holds Kafka publisher settings. Empty brokers disable
// event publishing.
type EventstreamConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure. The
// upstream API key is deliberately absent: it is environment-only so it
// never lands in a config file.
var configKeys = map[string]configKeyInfo{
	"relay.listen": {
		get: func(c *Config) string { return c.Relay.Listen },
		set: func(c *Config, v string) error { c.Relay.Listen = v; return nil },
	},
	"upstream.url": {
		get: func(c *Config) string { return c.Upstream.URL },
		set: func(c *Config, v string) error { c.Upstream.URL = v; return nil },
	},
	"upstream.model": {
		get: func(c *Config) string { return c.Upstream.Model },
		set: func(c *Config, v string) error { c.Upstream.Model = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.Eventstream.Brokers, ",") },
		set: func(c *Config, v string) error {
			var brokers []string
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			c.Eventstream.Brokers = brokers
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.Eventstream.Topic },
		set: func(c *Config, v string) error { c.Eventstream.Topic = v; return nil },
	},
}
