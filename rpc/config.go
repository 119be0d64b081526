package rpc

import "time"

// Defines the configuration options for the node connection
type Config struct {
	// Node endpoint, ws:// or wss:// for subscriptions, http(s):// for calls only
	URL string `mapstructure:"url"`
	// Timeout bounds dialing and every call that has no deadline of its own
	Timeout time.Duration `mapstructure:"timeout"`
	// ReadLimit is the largest websocket message accepted; metadata responses
	// run to several megabytes
	ReadLimit int64 `mapstructure:"readlimit"`
}

// DefaultConfig returns a default configuration for the node connection
var DefaultConfig = Config{
	URL:       "ws://127.0.0.1:9944",
	Timeout:   30 * time.Second,
	ReadLimit: 64 << 20,
}
