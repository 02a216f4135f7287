package node

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/peer"
)

// replySink routes a reply back over the channel its request arrived on.
// Sends are serialized per channel.
type replySink interface {
	send(frame *protocol.Frame) error
	String() string
}

// An inbound peer request and the stream it arrived on.
type inbound struct {
	frame  *protocol.Frame
	stream *peerStream
}

// coordinatorChannel is the persistent session with the coordinator.
// The session is re-established and re-registered whenever it breaks.
type coordinatorChannel struct {
	node   *Node
	uri    string
	conn   *grpc.ClientConn
	client protocol.CoordinatorClient

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	inbox chan *protocol.Frame

	// Write lock. Also guards stream.
	mu     sync.Mutex
	stream protocol.Coordinator_ConnectClient
}

func newCoordinatorChannel(n *Node) (*coordinatorChannel, error) {
	target, err := utils.ParseGrpcUrl(n.opts.CoordinatorUri)
	if err != nil {
		return nil, err
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	opts = append(opts, n.dialOptions()...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &coordinatorChannel{
		node:   n,
		uri:    n.opts.CoordinatorUri,
		conn:   conn,
		client: protocol.NewCoordinatorClient(conn),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		inbox:  make(chan *protocol.Frame),
	}

	if err := c.connect(); err != nil {
		n.logger.Warn(n.address, "Failed to connect to coordinator", c.uri, ":", err)
	}

	go c.run()

	return c, nil
}

// Opens a session and announces the node identity.
func (c *coordinatorChannel) connect() error {
	stream, err := c.client.Connect(c.ctx, c.node.callOptions()...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := stream.Send(protocol.NewRegisterFrame(c.node.address)); err != nil {
		return err
	}

	c.stream = stream
	c.node.logger.Debug(c.node.address, "Registered with coordinator", c.uri)
	return nil
}

func (c *coordinatorChannel) current() protocol.Coordinator_ConnectClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

func (c *coordinatorChannel) run() {
	defer close(c.done)

	for {
		if stream := c.current(); stream != nil {
			err := c.receive(stream)

			c.mu.Lock()
			c.stream = nil
			c.mu.Unlock()

			if c.ctx.Err() != nil || c.node.Closed() {
				return
			}
			if err == nil || utils.IsUnavailable(err) {
				c.node.logger.Info(c.node.address, "Coordinator went away, reconnecting")
			} else {
				c.node.logger.Warn(c.node.address, "Lost connection to coordinator:", err)
			}
		}

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.node.opts.ReconnectDelay):
		}

		if c.node.Closed() {
			return
		}

		if err := c.connect(); err != nil {
			c.node.logger.Debug(c.node.address, "Failed to connect to coordinator:", err)
			continue
		}
		c.node.logger.Info(c.node.address, "Connected to coordinator", c.uri)
	}
}

// Hands received frames to the coordinator polling loop until the
// stream breaks.
func (c *coordinatorChannel) receive(stream protocol.Coordinator_ConnectClient) error {
	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			return utils.ErrClosed
		}
		if err != nil {
			return err
		}

		select {
		case c.inbox <- frame:
		case <-c.node.stopped:
			c.node.logger.Debug(c.node.address, "Dropping request from coordinator, node closed")
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

func (c *coordinatorChannel) send(frame *protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return utils.ErrClosed
	}
	return c.stream.Send(frame)
}

func (c *coordinatorChannel) String() string {
	return "coordinator"
}

func (c *coordinatorChannel) close() {
	c.mu.Lock()
	if c.stream != nil {
		c.stream.CloseSend()
	}
	c.mu.Unlock()

	// Let the coordinator end the session so queued replies are flushed
	select {
	case <-c.done:
	case <-time.After(shutdownGrace):
	}

	c.cancel()
	<-c.done
	c.conn.Close()
}

// peerChannel is the endpoint serving requests from any number of peers.
// Every peer opens its own stream; replies go back on that stream.
type peerChannel struct {
	node  *Node
	inbox chan inbound
}

func newPeerChannel(n *Node) *peerChannel {
	return &peerChannel{
		node:  n,
		inbox: make(chan inbound),
	}
}

// Static checks that peerChannel implements the gRPC service
var _ protocol.PeerServer = (*peerChannel)(nil)

// Exchange serves one peer stream. It returns once the peer has finished
// sending and every reply owed to it has been sent.
func (p *peerChannel) Exchange(stream protocol.Peer_ExchangeServer) error {
	s := &peerStream{stream: stream, remote: "peer"}
	if info, ok := peer.FromContext(stream.Context()); ok {
		s.remote = info.Addr.String()
	}
	defer s.pending.Wait()

	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if frame.Identity != "" {
			s.setRemote(frame.Identity)
		}

		s.pending.Add(1)
		select {
		case p.inbox <- inbound{frame: frame, stream: s}:
		case <-p.node.stopped:
			s.pending.Done()
			return utils.GrpcError(utils.ErrClosed)
		}
	}
}

type peerStream struct {
	stream protocol.Peer_ExchangeServer

	// Write lock.
	mu     sync.Mutex
	remote string

	// Requests received on the stream and not yet answered.
	pending sync.WaitGroup
}

func (s *peerStream) setRemote(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = address
}

func (s *peerStream) send(frame *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Send(frame)
}

func (s *peerStream) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

func (s *peerStream) done() {
	s.pending.Done()
}
