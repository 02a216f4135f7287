// Package node implements a compute node of a distributed task cluster.
//
// A node accepts requests from its coordinator and from peer nodes,
// executes them on a bounded pool against a shared data store, fetches
// missing inputs from peers and replies on the channel each request
// arrived on.
package node

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/journal"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/store"
	"github.com/srand/jolt/node/pkg/taskgraph"
	"github.com/srand/jolt/node/pkg/utils"
	"google.golang.org/grpc"
)

type Options struct {
	// gRPC URI of the coordinator.
	CoordinatorUri string

	// Explicit identity, tcp://host:port. When empty the identity is
	// tcp://<hostname>:<Port>. A port of 0 binds an ephemeral port.
	Address string
	Port    int

	// Execution slots and the number of requests allowed to wait for one.
	// A QueueSize of 0 selects DefaultQueueSize, a negative one disables
	// queueing so requests are rejected unless a slot is free.
	Threads   int
	QueueSize int

	// Serializer for headers and payloads.
	Codec codec.Codec

	// Local data. Defaults to an empty in-memory store.
	Store store.Store

	// Task evaluator used by compute. Defaults to taskgraph.New().
	Evaluator taskgraph.Evaluator

	// Optional sink for job outcome records.
	Journal journal.Journal

	// Channel poll timeout.
	PollInterval time.Duration

	// Maximum time to wait for peers during collect. Zero waits forever.
	CollectTimeout time.Duration

	// Delay between coordinator reconnection attempts.
	ReconnectDelay time.Duration

	MaxMessageSize int
	Compression    string
	Grpc           utils.GRPCOptions

	Labels Labels

	Logger *log.Logger
}

func (o *Options) setDefaults() error {
	if o.CoordinatorUri == "" {
		o.CoordinatorUri = DefaultCoordinatorUri
	}
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	switch {
	case o.QueueSize == 0:
		o.QueueSize = DefaultQueueSize
	case o.QueueSize < 0:
		o.QueueSize = 0
	}
	if o.Codec == nil {
		c, err := codec.Lookup(codec.Default)
		if err != nil {
			return err
		}
		o.Codec = c
	}
	if o.Store == nil {
		o.Store = store.NewMemoryStore()
	}
	if o.Evaluator == nil {
		o.Evaluator = taskgraph.New()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}

// Stats are counters of the requests handled by a node.
type Stats struct {
	Received      int64 `json:"received"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	NotFound      int64 `json:"not_found"`
	Rejected      int64 `json:"rejected"`
	Computed      int64 `json:"computed"`
	ComputeFailed int64 `json:"compute_failed"`
	Collected     int64 `json:"collected"`
}

type counters struct {
	received      atomic.Int64
	succeeded     atomic.Int64
	failed        atomic.Int64
	notFound      atomic.Int64
	rejected      atomic.Int64
	computed      atomic.Int64
	computeFailed atomic.Int64
	collected     atomic.Int64
}

type Node struct {
	address string
	opts    Options
	logger  *log.Logger
	codec   codec.Codec
	data    store.Store
	pool    *utils.WorkerPool

	functions map[protocol.Function]handler

	listener    net.Listener
	server      *grpc.Server
	coordinator *coordinatorChannel
	peers       *peerChannel

	// Closed when the polling loops have stopped. Inbound frames are
	// no longer accepted after this.
	stopped chan struct{}
	loops   sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once

	started time.Time
	labels  Labels
	stats   counters
}

// New creates a node, binds its peer endpoint, registers with the
// coordinator and starts listening on both channels.
//
// Only a failure to bind the listening address is fatal. If the
// coordinator cannot be reached the node keeps trying in the background.
func New(opts Options) (*Node, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}

	n := &Node{
		opts:    opts,
		logger:  opts.Logger,
		codec:   opts.Codec,
		data:    opts.Store,
		stopped: make(chan struct{}),
		started: time.Now(),
		labels:  DefaultLabels().Merge(opts.Labels),
	}
	n.functions = n.registry()

	if err := n.listen(); err != nil {
		return nil, err
	}

	n.pool = utils.NewWorkerPool(opts.Threads, opts.QueueSize)
	n.pool.Start()

	n.peers = newPeerChannel(n)
	n.server = grpc.NewServer(n.serverOptions()...)
	protocol.RegisterPeerServer(n.server, n.peers)
	go func() {
		if err := n.server.Serve(n.listener); err != nil {
			n.logger.Error(n.address, "Peer endpoint failed:", err)
		}
	}()

	coordinator, err := newCoordinatorChannel(n)
	if err != nil {
		n.server.Stop()
		n.pool.Close()
		return nil, err
	}
	n.coordinator = coordinator

	n.logger.Info(n.address, "Start up", n.opts.CoordinatorUri)

	n.loops.Add(2)
	go n.listenToCoordinator()
	go n.listenToPeers()

	return n, nil
}

// Binds the peer endpoint and settles the node identity.
func (n *Node) listen() error {
	address := n.opts.Address
	if address == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return err
		}
		address = utils.FormatTcpUrl(net.JoinHostPort(hostname, fmt.Sprint(n.opts.Port)))
	}

	host, err := utils.ParseGrpcUrl(address)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", host)
	if err != nil {
		return fmt.Errorf("bind %s: %w", address, err)
	}

	// An ephemeral port becomes part of the identity
	if _, port, err := net.SplitHostPort(host); err == nil && port == "0" {
		address, err = utils.WithPort(address, listener.Addr().(*net.TCPAddr).Port)
		if err != nil {
			listener.Close()
			return err
		}
	}

	n.listener = listener
	n.address = address
	return nil
}

func (n *Node) serverOptions() []grpc.ServerOption {
	opts := n.opts.Grpc.ToServerOptions()
	return append(opts, utils.MessageSizeServerOptions(n.opts.MaxMessageSize)...)
}

func (n *Node) dialOptions() []grpc.DialOption {
	opts := n.opts.Grpc.ToDialOptions()
	return append(opts, utils.MessageSizeDialOptions(n.opts.MaxMessageSize)...)
}

func (n *Node) callOptions() []grpc.CallOption {
	opts, err := utils.CompressionCallOptions(n.opts.Compression)
	if err != nil {
		n.logger.Warn(n.address, "Compression disabled:", err)
	}
	return opts
}

// Address returns the identity of the node.
func (n *Node) Address() string {
	return n.address
}

// Data returns the local data store.
func (n *Node) Data() store.Store {
	return n.data
}

func (n *Node) Labels() Labels {
	return n.labels
}

func (n *Node) Closed() bool {
	return n.closed.Load()
}

func (n *Node) Stats() Stats {
	return Stats{
		Received:      n.stats.received.Load(),
		Succeeded:     n.stats.succeeded.Load(),
		Failed:        n.stats.failed.Load(),
		NotFound:      n.stats.notFound.Load(),
		Rejected:      n.stats.rejected.Load(),
		Computed:      n.stats.computed.Load(),
		ComputeFailed: n.stats.computeFailed.Load(),
		Collected:     n.stats.collected.Load(),
	}
}

func (n *Node) PoolStats() utils.WorkerPoolStats {
	return n.pool.Stats()
}

func (n *Node) Uptime() time.Duration {
	return time.Since(n.started)
}

// Close stops accepting requests and waits for all submitted work,
// including replies, to finish. Work blocked on unresponsive peers
// is not interrupted. Safe to call more than once.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		n.logger.Info(n.address, "Close")
		n.closed.Store(true)

		n.loops.Wait()
		close(n.stopped)

		n.pool.Close()

		n.coordinator.close()
		n.stopServer()

		if n.opts.Journal != nil {
			if err := n.opts.Journal.Close(); err != nil {
				n.logger.Warn(n.address, "Failed to close journal:", err)
			}
		}
	})
	return nil
}

// Waits for peers to hang up, at most shutdownGrace, then drops
// the remaining streams.
func (n *Node) stopServer() {
	stopped := make(chan struct{})
	go func() {
		n.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		n.server.Stop()
		<-stopped
	}
}

// A context for work running on the pool. Close does not cancel it.
func (n *Node) context() context.Context {
	return context.Background()
}
