package config

const (
	defaultRelayListen  = ":8080"
	defaultUpstreamURL  = "https://api.openai.com"
	defaultModel        = "gpt-4.1-mini"
	defaultClientTarget = "http://localhost:8080"
	defaultTopic        = "respchat.requests"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen: defaultRelayListen,
		},
		Upstream: UpstreamConfig{
			URL:   defaultUpstreamURL,
			Model: defaultModel,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
		Eventstream: EventstreamConfig{
			Topic: defaultTopic,
		},
	}
}
