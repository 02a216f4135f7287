package main

import (
	"time"

	"github.com/spf13/viper"
	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/utils"
)

type ControlConfig struct {
	NodeUri    string        `mapstructure:"node_uri"`
	Serializer string        `mapstructure:"serializer"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func ParseConfig() (*ControlConfig, error) {
	config := &ControlConfig{
		Serializer: codec.Default,
		Timeout:    30 * time.Second,
	}

	if err := utils.UnmarshalConfig(viper.GetViper(), config); err != nil {
		return nil, err
	}

	if _, err := utils.ParseGrpcUrl(config.NodeUri); err != nil {
		return nil, err
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return config, nil
}
