// Package coordinator implements the coordinator side of the node
// protocol: it accepts node registrations and submits correlated
// requests to registered nodes.
//
// It is a minimal endpoint for embedding and testing. Task placement is
// left to the caller.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
)

var ErrUnknownNode = fmt.Errorf("%w: node not registered", utils.ErrNotFound)

// EventType tells whether a node joined or left.
type EventType int

const (
	NodeRegistered EventType = iota
	NodeDisconnected
)

type Event struct {
	Type    EventType
	Address string
}

type Options struct {
	Codec  codec.Codec
	Logger *log.Logger
}

type Coordinator struct {
	codec  codec.Codec
	logger *log.Logger

	mu    sync.RWMutex
	nodes map[string]*node

	events *utils.Broadcast[Event]

	// Replies no caller was waiting for.
	discarded atomic.Int64
}

// A registered node.
type node struct {
	address string
	stream  protocol.Coordinator_ConnectServer
	sendMu  sync.Mutex
	pending *protocol.Pending
}

func New(opts Options) (*Coordinator, error) {
	if opts.Codec == nil {
		var err error
		if opts.Codec, err = codec.Lookup(codec.Default); err != nil {
			return nil, err
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Coordinator{
		codec:  opts.Codec,
		logger: opts.Logger,
		nodes:  map[string]*node{},
		events: utils.NewBroadcast[Event](100),
	}, nil
}

// Static checks that Coordinator implements the gRPC service
var _ protocol.CoordinatorServer = (*Coordinator)(nil)

// Connect serves one node session. The first frame must be the
// registration announcement.
func (c *Coordinator) Connect(stream protocol.Coordinator_ConnectServer) error {
	frame, err := stream.Recv()
	if err != nil {
		return err
	}

	if !frame.IsRegister() || frame.Identity == "" {
		return utils.GrpcError(fmt.Errorf("%w: expected registration", utils.ErrBadRequest))
	}

	n := &node{
		address: frame.Identity,
		stream:  stream,
		pending: protocol.NewPending(),
	}

	c.mu.Lock()
	if old, ok := c.nodes[n.address]; ok {
		old.pending.Close(fmt.Errorf("%w: node %s re-registered", utils.ErrClosed, n.address))
	}
	c.nodes[n.address] = n
	c.mu.Unlock()

	c.logger.Info("Node registered:", n.address)
	c.events.Send(Event{Type: NodeRegistered, Address: n.address})

	defer func() {
		c.mu.Lock()
		if c.nodes[n.address] == n {
			delete(c.nodes, n.address)
		}
		c.mu.Unlock()

		c.logger.Info("Node disconnected:", n.address)
		c.events.Send(Event{Type: NodeDisconnected, Address: n.address})
	}()

	for {
		frame, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			n.pending.Close(utils.ErrClosed)
			return err
		}

		if frame.IsRegister() {
			continue
		}

		reply, err := protocol.DecodeReply(c.codec, frame)
		if err != nil {
			c.logger.Warn("Failed to decode reply from", n.address, ":", err)
			continue
		}

		if !n.pending.Deliver(reply) {
			c.discarded.Add(1)
			c.logger.Debug("Discarding uncorrelated reply from", n.address, "jobid:", reply.JobID)
		}
	}
}

func (c *Coordinator) node(address string) (*node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, address)
	}
	return n, nil
}

// Discarded returns the number of replies received without a matching
// outstanding request.
func (c *Coordinator) Discarded() int64 {
	return c.discarded.Load()
}

// Nodes returns the addresses of all registered nodes.
func (c *Coordinator) Nodes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	addresses := make([]string, 0, len(c.nodes))
	for address := range c.nodes {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// Events subscribes to node registrations and disconnects.
func (c *Coordinator) Events() *utils.BroadcastConsumer[Event] {
	return c.events.NewConsumer()
}

// WaitForNode blocks until a node with the address is registered.
func (c *Coordinator) WaitForNode(ctx context.Context, address string) error {
	events := c.Events()
	defer events.Close()

	if _, err := c.node(address); err == nil {
		return nil
	}

	for {
		select {
		case event, ok := <-events.Chan:
			if !ok {
				return utils.ErrClosed
			}
			if event.Type == NodeRegistered && event.Address == address {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send transmits a request to a node. The request's reply flag is honored,
// but any reply is discarded.
func (c *Coordinator) Send(address string, req *protocol.Request) error {
	n, err := c.node(address)
	if err != nil {
		return err
	}
	return n.send(c.codec, req)
}

func (n *node) send(c codec.Codec, req *protocol.Request) error {
	frame, err := protocol.EncodeRequest(c, "", req)
	if err != nil {
		return err
	}

	n.sendMu.Lock()
	defer n.sendMu.Unlock()
	return n.stream.Send(frame)
}

// Go transmits a request to a node and returns the channel its reply is
// delivered on. A random job id is assigned if the request has none.
func (c *Coordinator) Go(address string, req *protocol.Request) (<-chan *protocol.Reply, error) {
	n, err := c.node(address)
	if err != nil {
		return nil, err
	}

	if req.JobID == nil {
		req.JobID = uuid.NewString()
	}
	req.Reply = true

	ch, err := n.pending.Add(req.JobID)
	if err != nil {
		return nil, err
	}

	if err := n.send(c.codec, req); err != nil {
		n.pending.Remove(req.JobID)
		return nil, err
	}
	return ch, nil
}

// Call sends a request to a node and waits for the reply.
func (c *Coordinator) Call(ctx context.Context, address string, function protocol.Function, args ...any) (*protocol.Reply, error) {
	req := &protocol.Request{Function: string(function), Args: args}

	ch, err := c.Go(address, req)
	if err != nil {
		return nil, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", address, utils.ErrClosed)
		}
		return reply, nil
	case <-ctx.Done():
		if n, err := c.node(address); err == nil {
			n.pending.Remove(req.JobID)
		}
		return nil, ctx.Err()
	}
}

// Compute asks a node to evaluate a task, fetching dependencies from the
// given locations first.
func (c *Coordinator) Compute(ctx context.Context, address, key string, task any, locations map[string][]string) (*protocol.JobRecord, error) {
	reply, err := c.Call(ctx, address, protocol.FunctionCompute, key, task, protocol.Locations(locations))
	if err != nil {
		return nil, err
	}
	if err := reply.Err(); err != nil {
		return nil, err
	}

	record := &protocol.JobRecord{}
	if err := reply.Decode(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Close disconnects all consumers of registration events.
func (c *Coordinator) Close() {
	c.events.Close()
}
