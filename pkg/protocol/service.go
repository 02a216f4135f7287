package protocol

import (
	"context"

	"google.golang.org/grpc"
)

// The service definitions below follow protoc-gen-go-grpc output for:
//
//	service Coordinator { rpc Connect(stream Frame) returns (stream Frame); }
//	service Peer        { rpc Exchange(stream Frame) returns (stream Frame); }
//
// Frames are encoded by FrameCodec, selected through the content subtype.

const (
	Coordinator_Connect_FullMethodName = "/jolt.node.Coordinator/Connect"
	Peer_Exchange_FullMethodName       = "/jolt.node.Peer/Exchange"
)

type (
	Coordinator_ConnectClient = grpc.BidiStreamingClient[Frame, Frame]
	Coordinator_ConnectServer = grpc.BidiStreamingServer[Frame, Frame]
	Peer_ExchangeClient       = grpc.BidiStreamingClient[Frame, Frame]
	Peer_ExchangeServer       = grpc.BidiStreamingServer[Frame, Frame]
)

// CallOptions returns the call options every node stream is opened with.
func CallOptions(opts ...grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(FrameCodecName)}, opts...)
}

// CoordinatorClient is implemented by the node to reach its coordinator.
type CoordinatorClient interface {
	Connect(ctx context.Context, opts ...grpc.CallOption) (Coordinator_ConnectClient, error)
}

type coordinatorClient struct {
	cc grpc.ClientConnInterface
}

func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc}
}

func (c *coordinatorClient) Connect(ctx context.Context, opts ...grpc.CallOption) (Coordinator_ConnectClient, error) {
	stream, err := c.cc.NewStream(ctx, &Coordinator_ServiceDesc.Streams[0], Coordinator_Connect_FullMethodName, CallOptions(opts...)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[Frame, Frame]{ClientStream: stream}, nil
}

// CoordinatorServer is implemented by coordinators accepting nodes.
type CoordinatorServer interface {
	Connect(Coordinator_ConnectServer) error
}

func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&Coordinator_ServiceDesc, srv)
}

func _Coordinator_Connect_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(CoordinatorServer).Connect(&grpc.GenericServerStream[Frame, Frame]{ServerStream: stream})
}

var Coordinator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "jolt.node.Coordinator",
	HandlerType: (*CoordinatorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       _Coordinator_Connect_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "node.proto",
}

// PeerClient is used to send requests to a node's peer endpoint.
type PeerClient interface {
	Exchange(ctx context.Context, opts ...grpc.CallOption) (Peer_ExchangeClient, error)
}

type peerClient struct {
	cc grpc.ClientConnInterface
}

func NewPeerClient(cc grpc.ClientConnInterface) PeerClient {
	return &peerClient{cc}
}

func (c *peerClient) Exchange(ctx context.Context, opts ...grpc.CallOption) (Peer_ExchangeClient, error) {
	stream, err := c.cc.NewStream(ctx, &Peer_ServiceDesc.Streams[0], Peer_Exchange_FullMethodName, CallOptions(opts...)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[Frame, Frame]{ClientStream: stream}, nil
}

// PeerServer is implemented by nodes.
type PeerServer interface {
	Exchange(Peer_ExchangeServer) error
}

func RegisterPeerServer(s grpc.ServiceRegistrar, srv PeerServer) {
	s.RegisterService(&Peer_ServiceDesc, srv)
}

func _Peer_Exchange_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PeerServer).Exchange(&grpc.GenericServerStream[Frame, Frame]{ServerStream: stream})
}

var Peer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "jolt.node.Peer",
	HandlerType: (*PeerServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Exchange",
			Handler:       _Peer_Exchange_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "node.proto",
}
