package node

import (
	"testing"
	"time"

	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeConfigDefaults(t *testing.T) {
	c := NewNodeConfig()
	require.NoError(t, c.Validate())

	opts, err := c.Options()
	require.NoError(t, err)
	assert.Equal(t, DefaultCoordinatorUri, opts.CoordinatorUri)
	assert.Equal(t, DefaultPort, opts.Port)
	assert.Equal(t, 100, opts.Threads)
	assert.Equal(t, 1000, opts.QueueSize)
	assert.Equal(t, "cbor", opts.Codec.Name())
	assert.Equal(t, 100*time.Millisecond, opts.PollInterval)
	assert.Equal(t, time.Duration(0), opts.CollectTimeout)
	assert.Equal(t, 64<<20, opts.MaxMessageSize)

	c.Log(log.Discard())
}

func TestNodeConfigDecode(t *testing.T) {
	c := NewNodeConfig()
	err := utils.DecodeConfig(map[string]interface{}{
		"coordinator_uri": "tcp://sched:7000",
		"address":         "tcp://10.0.0.1:7001",
		"threads":         "8",
		"serializer":      "json+zstd",
		"collect_timeout": "5s",
		"labels":          "rack=a,zone=b",
		"journal": map[string]interface{}{
			"storage": "memory",
			"size":    "1MiB",
		},
	}, c)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	opts, err := c.Options()
	require.NoError(t, err)
	assert.Equal(t, "tcp://10.0.0.1:7001", opts.Address)
	assert.Equal(t, 8, opts.Threads)
	assert.Equal(t, "json+zstd", opts.Codec.Name())
	assert.Equal(t, 5*time.Second, opts.CollectTimeout)
	assert.Equal(t, Labels{"rack": "a", "zone": "b"}, opts.Labels)
	assert.True(t, c.Journal.Enabled())
}

func TestNodeConfigValidate(t *testing.T) {
	testCases := []func(c *NodeConfig){
		func(c *NodeConfig) { c.CoordinatorUri = "" },
		func(c *NodeConfig) { c.CoordinatorUri = "http://sched" },
		func(c *NodeConfig) { c.Address = "unix:///tmp/node" },
		func(c *NodeConfig) { c.Port = 70000 },
		func(c *NodeConfig) { c.Threads = 0 },
		func(c *NodeConfig) { c.QueueSize = -1 },
		func(c *NodeConfig) { c.PollInterval = 0 },
		func(c *NodeConfig) { c.CollectTimeout = -time.Second },
		func(c *NodeConfig) { c.Serializer = "pickle" },
		func(c *NodeConfig) { c.MaxMessageSize = "lots" },
		func(c *NodeConfig) { c.Compression = "lz77" },
		func(c *NodeConfig) { c.ListenHttp = []string{"ftp://x"} },
		func(c *NodeConfig) { c.Labels = []string{"novalue"} },
		func(c *NodeConfig) { c.Journal.StorageType = "tape" },
	}

	for i, tc := range testCases {
		c := NewNodeConfig()
		tc(c)
		assert.Error(t, c.Validate(), "case %d", i)
	}
}

func TestLabels(t *testing.T) {
	labels, err := ParseLabels([]string{"a=1", "b=x=y"})
	require.NoError(t, err)
	assert.Equal(t, Labels{"a": "1", "b": "x=y"}, labels)

	_, err = ParseLabels([]string{"=1"})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	defaults := DefaultLabels()
	assert.NotEmpty(t, defaults["node.arch"])
	assert.NotEmpty(t, defaults["node.os"])

	merged := defaults.Merge(Labels{"node.os": "plan9"})
	assert.Equal(t, "plan9", merged["node.os"])
	assert.NotEqual(t, "plan9", defaults["node.os"])
	assert.Equal(t, "a=1\nb=x=y\n", labels.String())
}

func TestQueueSizeDefaults(t *testing.T) {
	opts := Options{}
	require.NoError(t, opts.setDefaults())
	assert.Equal(t, DefaultQueueSize, opts.QueueSize)

	opts = Options{QueueSize: -1}
	require.NoError(t, opts.setDefaults())
	assert.Equal(t, 0, opts.QueueSize)

	c := NewNodeConfig()
	c.QueueSize = 0
	configured, err := c.Options()
	require.NoError(t, err)
	require.NoError(t, configured.setDefaults())
	assert.Equal(t, 0, configured.QueueSize, "a configured zero disables queueing")
}
