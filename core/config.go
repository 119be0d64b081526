package core

// Defines the configuration options for chain queries
type Config struct {
	// Keys requested per state_getKeysPaged call
	PageSize uint32 `mapstructure:"pagesize"`
	// Number of metadata epochs kept in memory
	RuntimeCache int `mapstructure:"runtimecache"`
}

// DefaultConfig returns a default configuration for chain queries
var DefaultConfig = Config{
	PageSize:     100,
	RuntimeCache: 8,
}
