package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/journal"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/utils"
)

const (
	DefaultCoordinatorUri = "tcp://coordinator:9090"
	DefaultPort           = 6464
	DefaultThreads        = 100
	DefaultQueueSize      = 1000
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultMaxMessageSize = "64MiB"
	DefaultReconnectDelay = time.Second

	// Time given to open streams to wind down on close.
	shutdownGrace = time.Second
)

type NodeConfig struct {
	Grpc utils.GRPCOptions `mapstructure:"grpc"`

	// gRPC URI of the coordinator.
	CoordinatorUri string `mapstructure:"coordinator_uri"`

	// Explicit identity of the node, tcp://host:port.
	// Defaults to tcp://<hostname>:<port>.
	Address string `mapstructure:"address"`

	// Listening port used when no address is configured.
	Port int `mapstructure:"port"`

	// Number of concurrent execution slots.
	Threads int `mapstructure:"threads"`

	// Number of requests waiting for a slot before new ones are rejected.
	// Zero disables queueing.
	QueueSize int `mapstructure:"queue_size"`

	// Serializer for message headers and payloads.
	Serializer string `mapstructure:"serializer"`

	// Channel poll timeout. Bounds shutdown latency.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Maximum time to wait for peers during collect. Zero waits forever.
	CollectTimeout time.Duration `mapstructure:"collect_timeout"`

	// Maximum size of a gRPC message.
	MaxMessageSize string `mapstructure:"max_message_size"`

	// gRPC compressor for outgoing messages, e.g. "gzip".
	Compression string `mapstructure:"compression"`

	// HTTP admin listen URIs.
	ListenHttp []string `mapstructure:"listen_http"`

	// Additional node labels, key=value.
	Labels []string `mapstructure:"labels"`

	// Job journal.
	Journal journal.Config `mapstructure:"journal"`
}

func NewNodeConfig() *NodeConfig {
	return &NodeConfig{
		CoordinatorUri: DefaultCoordinatorUri,
		Port:           DefaultPort,
		Threads:        DefaultThreads,
		QueueSize:      DefaultQueueSize,
		Serializer:     codec.Default,
		PollInterval:   DefaultPollInterval,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Checks if the node configuration is valid.
func (c *NodeConfig) Validate() error {
	if c.CoordinatorUri == "" {
		return errors.New("A coordinator URI is required")
	}

	if _, err := utils.ParseGrpcUrl(c.CoordinatorUri); err != nil {
		return fmt.Errorf("The coordinator URI is not a valid URI: %w", err)
	}

	if c.Address != "" {
		if _, err := utils.ParseGrpcUrl(c.Address); err != nil {
			return fmt.Errorf("The node address is not a valid URI: %w", err)
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return errors.New("The port must be in the range 0-65535")
	}

	if c.Threads <= 0 {
		return errors.New("The thread count must be greater than zero")
	}

	if c.QueueSize < 0 {
		return errors.New("The queue size must not be negative")
	}

	if c.PollInterval <= 0 {
		return errors.New("The poll interval must be greater than zero")
	}

	if c.CollectTimeout < 0 {
		return errors.New("The collect timeout must not be negative")
	}

	if _, err := codec.Lookup(c.Serializer); err != nil {
		return err
	}

	if c.MaxMessageSize != "" {
		if _, err := utils.ParseMessageSize(c.MaxMessageSize); err != nil {
			return err
		}
	}

	if _, err := utils.CompressionCallOptions(c.Compression); err != nil {
		return err
	}

	for _, uri := range c.ListenHttp {
		if _, err := utils.ParseHttpUrl(uri); err != nil {
			return err
		}
	}

	if _, err := ParseLabels(c.Labels); err != nil {
		return err
	}

	return c.Journal.Validate()
}

// Options converts the configuration to node options.
// The store, evaluator, journal and logger are left for the caller.
func (c *NodeConfig) Options() (*Options, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	serializer, err := codec.Lookup(c.Serializer)
	if err != nil {
		return nil, err
	}

	maxMessageSize := 0
	if c.MaxMessageSize != "" {
		if maxMessageSize, err = utils.ParseMessageSize(c.MaxMessageSize); err != nil {
			return nil, err
		}
	}

	labels, err := ParseLabels(c.Labels)
	if err != nil {
		return nil, err
	}

	queueSize := c.QueueSize
	if queueSize == 0 {
		queueSize = -1
	}

	return &Options{
		CoordinatorUri: c.CoordinatorUri,
		Address:        c.Address,
		Port:           c.Port,
		Threads:        c.Threads,
		QueueSize:      queueSize,
		Codec:          serializer,
		PollInterval:   c.PollInterval,
		CollectTimeout: c.CollectTimeout,
		MaxMessageSize: maxMessageSize,
		Compression:    c.Compression,
		Grpc:           c.Grpc,
		Labels:         labels,
	}, nil
}

func (c *NodeConfig) Log(logger *log.Logger) {
	logger.Info("Node configuration:")
	logger.Infof("  coordinator_uri = %s", c.CoordinatorUri)
	if c.Address != "" {
		logger.Infof("  address = %s", c.Address)
	} else {
		logger.Infof("  port = %d", c.Port)
	}
	logger.Infof("  threads = %d", c.Threads)
	logger.Infof("  queue_size = %d", c.QueueSize)
	logger.Infof("  serializer = %s", c.Serializer)
	logger.Infof("  poll_interval = %v", c.PollInterval)
	if c.CollectTimeout > 0 {
		logger.Infof("  collect_timeout = %v", c.CollectTimeout)
	} else {
		logger.Info("  collect_timeout = none")
	}
	logger.Infof("  max_message_size = %s", c.MaxMessageSize)
	if c.Compression != "" {
		logger.Infof("  compression = %s", c.Compression)
	}
	for _, uri := range c.ListenHttp {
		logger.Infof("  listen_http = %s", uri)
	}
	for _, label := range c.Labels {
		logger.Infof("  label = %s", label)
	}
	c.Journal.Log(logger)
	c.Grpc.Log(logger)
}
