package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/flags"
	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
)

// Config gathers the settings of every service a client runs.
type Config struct {
	RPC     rpc.Config  `mapstructure:"rpc"`
	Storage core.Config `mapstructure:"storage"`
	Tx      TxConfig    `mapstructure:"tx"`
}

type TxConfig struct {
	// Mortality is the era period of signed transactions, 0 for immortal.
	Mortality uint64 `mapstructure:"mortality"`
}

func Default() *Config {
	return &Config{
		RPC:     rpc.DefaultConfig,
		Storage: core.DefaultConfig,
		Tx:      TxConfig{Mortality: 64},
	}
}

// SetDefaults registers the defaults with viper, so config files and flags
// only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(flags.RPC_URL, d.RPC.URL)
	v.SetDefault(flags.RPC_Timeout, d.RPC.Timeout)
	v.SetDefault(flags.RPC_ReadLimit, d.RPC.ReadLimit)
	v.SetDefault(flags.Storage_PageSize, d.Storage.PageSize)
	v.SetDefault(flags.Storage_RuntimeCache, d.Storage.RuntimeCache)
	v.SetDefault(flags.Tx_Mortality, d.Tx.Mortality)
}

// Load reads the configuration from v on top of the defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.RPC.URL == "" {
		return nil, fmt.Errorf("config: %s is empty", flags.RPC_URL)
	}
	return cfg, nil
}
