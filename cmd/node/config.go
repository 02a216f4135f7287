package main

import (
	"github.com/spf13/viper"
	"github.com/srand/jolt/node/pkg/node"
	"github.com/srand/jolt/node/pkg/utils"
)

func LoadConfig() (*node.NodeConfig, error) {
	config := node.NewNodeConfig()

	err := utils.UnmarshalConfig(viper.GetViper(), config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
