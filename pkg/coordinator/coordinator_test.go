package coordinator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type CoordinatorTestSuite struct {
	suite.Suite
	coordinator *Coordinator
	codec       codec.Codec
	target      string
}

func (s *CoordinatorTestSuite) SetupTest() {
	var err error
	s.codec, err = codec.Lookup(codec.Default)
	s.Require().NoError(err)

	s.coordinator, err = New(Options{Codec: s.codec, Logger: log.Discard()})
	s.Require().NoError(err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	server := grpc.NewServer()
	protocol.RegisterCoordinatorServer(server, s.coordinator)
	go server.Serve(lis)

	s.T().Cleanup(func() {
		server.Stop()
		s.coordinator.Close()
	})

	s.target = lis.Addr().String()
}

func (s *CoordinatorTestSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s.T().Cleanup(cancel)
	return ctx
}

// connect opens a node session without registering.
func (s *CoordinatorTestSuite) connect() protocol.Coordinator_ConnectClient {
	conn, err := grpc.NewClient(s.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	s.T().Cleanup(cancel)

	stream, err := protocol.NewCoordinatorClient(conn).Connect(ctx)
	s.Require().NoError(err)
	return stream
}

// register opens a session and serves requests with an echo handler
// that replies with the first argument.
func (s *CoordinatorTestSuite) register(address string) protocol.Coordinator_ConnectClient {
	stream := s.connect()
	s.Require().NoError(stream.Send(protocol.NewRegisterFrame(address)))

	go func() {
		for {
			frame, err := stream.Recv()
			if err != nil {
				return
			}

			req, err := protocol.DecodeRequest(s.codec, frame)
			if err != nil || !req.Reply {
				continue
			}

			var result any
			if len(req.Args) > 0 {
				result = req.Args[0]
			}
			if req.Function == string(protocol.FunctionCompute) {
				result = &protocol.JobRecord{Key: req.Args[0].(string), Status: protocol.StatusOK}
			}

			reply, err := protocol.EncodeReply(s.codec, address, &protocol.Header{JobID: req.JobID, Status: protocol.StatusOK}, result)
			if err != nil {
				return
			}
			stream.Send(reply)
		}
	}()

	s.Require().NoError(s.coordinator.WaitForNode(s.ctx(), address))
	return stream
}

func (s *CoordinatorTestSuite) TestRegistration() {
	events := s.coordinator.Events()
	defer events.Close()

	s.register("tcp://b:1")
	s.register("tcp://a:1")
	s.Equal([]string{"tcp://a:1", "tcp://b:1"}, s.coordinator.Nodes())

	event := <-events.Chan
	s.Equal(Event{Type: NodeRegistered, Address: "tcp://b:1"}, event)
}

func (s *CoordinatorTestSuite) TestDisconnect() {
	events := s.coordinator.Events()
	defer events.Close()

	stream := s.register("tcp://a:1")
	s.Require().NoError(stream.CloseSend())

	for event := range events.Chan {
		if event.Type == NodeDisconnected {
			s.Equal("tcp://a:1", event.Address)
			break
		}
	}
	s.Empty(s.coordinator.Nodes())
}

func (s *CoordinatorTestSuite) TestRejectUnregistered() {
	stream := s.connect()

	frame, err := protocol.EncodeRequest(s.codec, "tcp://a:1", &protocol.Request{Function: "status"})
	s.Require().NoError(err)
	s.Require().NoError(stream.Send(frame))

	_, err = stream.Recv()
	s.Equal(codes.InvalidArgument, status.Code(err))
	s.Empty(s.coordinator.Nodes())
}

func (s *CoordinatorTestSuite) TestCall() {
	s.register("tcp://a:1")

	reply, err := s.coordinator.Call(s.ctx(), "tcp://a:1", protocol.FunctionGetItem, "x")
	s.Require().NoError(err)
	s.True(reply.OK())
	s.Equal("tcp://a:1", reply.Address)

	value, err := reply.Value()
	s.Require().NoError(err)
	s.Equal("x", value)

	record, err := s.coordinator.Compute(s.ctx(), "tcp://a:1", "z", []any{"inc", "x"}, nil)
	s.Require().NoError(err)
	s.Equal("z", record.Key)
	s.True(record.OK())
}

func (s *CoordinatorTestSuite) TestDiscardedReply() {
	stream := s.register("tcp://a:1")

	frame, err := protocol.EncodeReply(s.codec, "tcp://a:1", &protocol.Header{JobID: "nobody", Status: protocol.StatusOK}, nil)
	s.Require().NoError(err)
	s.Require().NoError(stream.Send(frame))

	s.Eventually(func() bool { return s.coordinator.Discarded() == 1 }, 10*time.Second, 10*time.Millisecond)

	// Replies to outstanding requests are not counted
	_, err = s.coordinator.Call(s.ctx(), "tcp://a:1", protocol.FunctionGetItem, "x")
	s.Require().NoError(err)
	s.Equal(int64(1), s.coordinator.Discarded())
}

func (s *CoordinatorTestSuite) TestUnknownNode() {
	_, err := s.coordinator.Call(s.ctx(), "tcp://nowhere:1", protocol.FunctionStatus)
	s.ErrorIs(err, ErrUnknownNode)
	s.ErrorIs(err, utils.ErrNotFound)
}

func (s *CoordinatorTestSuite) TestWaitForNodeTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.ErrorIs(s.coordinator.WaitForNode(ctx, "tcp://nowhere:1"), context.DeadlineExceeded)
}

func TestCoordinator(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}
