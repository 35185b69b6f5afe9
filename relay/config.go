package relay

import "github.com/kosar/responses-api/pkg/upstream"

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Upstream holds the Responses API connection settings.
	Upstream upstream.Config

	// Brokers and Topic configure the Kafka eventstream publisher.
	// Leaving Brokers empty disables event publishing (nop publisher).
	Brokers []string
	Topic   string
}
