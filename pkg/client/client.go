// Package client talks to the peer endpoint of a node.
//
// A Client owns one stream to one node. Requests may be issued
// concurrently; replies are matched to their request by job id.
package client

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Options struct {
	// Serializer for headers and payloads. Defaults to codec.Default.
	Codec codec.Codec

	// Identity stamped into every request header so the receiver
	// knows where the request came from.
	Address string

	// Maximum size of a frame in either direction. Zero keeps the gRPC default.
	MaxMessageSize int

	// Additional dial options, e.g. keepalive parameters.
	DialOptions []grpc.DialOption

	// Additional call options, e.g. compression.
	CallOptions []grpc.CallOption

	Logger *log.Logger
}

type Client struct {
	uri     string
	address string
	codec   codec.Codec
	logger  *log.Logger

	conn   *grpc.ClientConn
	stream protocol.Peer_ExchangeClient
	cancel context.CancelFunc

	// Serializes writes to the stream.
	sendMu sync.Mutex

	pending *protocol.Pending
	done    chan struct{}

	closeOnce sync.Once
}

// Dial connects to the peer endpoint of the node at uri (tcp://host:port).
func Dial(ctx context.Context, uri string, opts Options) (*Client, error) {
	target, err := utils.ParseGrpcUrl(uri)
	if err != nil {
		return nil, err
	}

	if opts.Codec == nil {
		if opts.Codec, err = codec.Lookup(codec.Default); err != nil {
			return nil, err
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	dialOpts = append(dialOpts, utils.MessageSizeDialOptions(opts.MaxMessageSize)...)
	dialOpts = append(dialOpts, opts.DialOptions...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	stream, err := protocol.NewPeerClient(conn).Exchange(streamCtx, opts.CallOptions...)
	if !stop() || err != nil {
		cancel()
		conn.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}

	c := &Client{
		uri:     uri,
		address: opts.Address,
		codec:   opts.Codec,
		logger:  opts.Logger,
		conn:    conn,
		stream:  stream,
		cancel:  cancel,
		pending: protocol.NewPending(),
		done:    make(chan struct{}),
	}

	go c.receive()

	return c, nil
}

// URI returns the address of the node the client is connected to.
func (c *Client) URI() string {
	return c.uri
}

func (c *Client) receive() {
	defer close(c.done)

	for {
		frame, err := c.stream.Recv()
		if err != nil {
			if err == io.EOF {
				err = utils.ErrClosed
			}
			c.pending.Close(err)
			return
		}

		reply, err := protocol.DecodeReply(c.codec, frame)
		if err != nil {
			c.logger.Warn("Failed to decode reply from", c.uri, ":", err)
			continue
		}

		if !c.pending.Deliver(reply) {
			c.logger.Debug("Discarding uncorrelated reply from", c.uri, "jobid:", reply.JobID)
		}
	}
}

// Send transmits a request without registering for its reply.
func (c *Client) Send(req *protocol.Request) error {
	frame, err := protocol.EncodeRequest(c.codec, c.address, req)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.pending.Err(); err != nil {
		return err
	}
	return c.stream.Send(frame)
}

// Go transmits a request and returns the channel its reply will be
// delivered on. A random job id is assigned if the request has none.
// The channel is closed without a value if the connection is lost.
func (c *Client) Go(req *protocol.Request) (<-chan *protocol.Reply, error) {
	if req.JobID == nil {
		req.JobID = uuid.NewString()
	}
	req.Reply = true

	ch, err := c.pending.Add(req.JobID)
	if err != nil {
		return nil, err
	}

	if err := c.Send(req); err != nil {
		c.pending.Remove(req.JobID)
		return nil, err
	}

	return ch, nil
}

// Wait blocks until the reply arrives on ch or the context is done.
func (c *Client) Wait(ctx context.Context, jobid any, ch <-chan *protocol.Reply) (*protocol.Reply, error) {
	select {
	case reply, ok := <-ch:
		if !ok {
			err := c.pending.Err()
			if err == nil {
				err = utils.ErrClosed
			}
			return nil, fmt.Errorf("%s: %w", c.uri, err)
		}
		return reply, nil

	case <-ctx.Done():
		c.pending.Remove(jobid)
		return nil, ctx.Err()
	}
}

// Call sends a request and waits for its reply.
func (c *Client) Call(ctx context.Context, function protocol.Function, args []any, kwargs map[string]any) (*protocol.Reply, error) {
	req := &protocol.Request{
		Function: string(function),
		Args:     args,
		Kwargs:   kwargs,
	}

	ch, err := c.Go(req)
	if err != nil {
		return nil, err
	}

	return c.Wait(ctx, req.JobID, ch)
}

// Close tears down the stream. Outstanding calls fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.stream.CloseSend()
		c.sendMu.Unlock()

		c.cancel()
		<-c.done
		c.pending.Close(utils.ErrClosed)
		err = c.conn.Close()
	})
	return err
}

func callError(reply *protocol.Reply, err error) error {
	if err != nil {
		return err
	}
	return reply.Err()
}

// Status checks that the node is alive.
func (c *Client) Status(ctx context.Context) error {
	reply, err := c.Call(ctx, protocol.FunctionStatus, nil, nil)
	if err := callError(reply, err); err != nil {
		return err
	}

	var status string
	if err := reply.Decode(&status); err != nil {
		return err
	}
	if status != protocol.StatusOK {
		return fmt.Errorf("unexpected status: %s", status)
	}
	return nil
}

// GetItem fetches the value stored under key.
func (c *Client) GetItem(ctx context.Context, key string) (any, error) {
	reply, err := c.Call(ctx, protocol.FunctionGetItem, []any{key}, nil)
	if err := callError(reply, err); err != nil {
		return nil, err
	}
	return reply.Value()
}

// SetItem stores value under key.
func (c *Client) SetItem(ctx context.Context, key string, value any) error {
	reply, err := c.Call(ctx, protocol.FunctionSetItem, []any{key, value}, nil)
	return callError(reply, err)
}

// DelItem removes key.
func (c *Client) DelItem(ctx context.Context, key string) error {
	reply, err := c.Call(ctx, protocol.FunctionDelItem, []any{key}, nil)
	return callError(reply, err)
}

// Collect asks the node to fetch keys from the given locations.
func (c *Client) Collect(ctx context.Context, locations map[string][]string) error {
	reply, err := c.Call(ctx, protocol.FunctionCollect, []any{protocol.Locations(locations)}, nil)
	return callError(reply, err)
}

// Compute asks the node to evaluate task and store the result under key.
func (c *Client) Compute(ctx context.Context, key string, task any, locations map[string][]string) (*protocol.JobRecord, error) {
	reply, err := c.Call(ctx, protocol.FunctionCompute, []any{key, task, protocol.Locations(locations)}, nil)
	if err := callError(reply, err); err != nil {
		return nil, err
	}

	record := &protocol.JobRecord{}
	if err := reply.Decode(record); err != nil {
		return nil, err
	}
	return record, nil
}
