package protocol

import (
	"bytes"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// RegisterMarker is the payload of the registration announcement.
const RegisterMarker = "Register"

// Frame is the unit carried by both node streams: the sender identity
// followed by an independently serialized header and payload.
//
// Wire format (protobuf compatible):
//
//	message Frame {
//	  string identity = 1;
//	  bytes header = 2;
//	  bytes payload = 3;
//	}
type Frame struct {
	Identity string
	Header   []byte
	Payload  []byte
}

// NewRegisterFrame returns the one-shot announcement a node sends to the
// coordinator after connecting.
func NewRegisterFrame(identity string) *Frame {
	return &Frame{Identity: identity, Payload: []byte(RegisterMarker)}
}

// IsRegister returns true if the frame is a registration announcement.
func (f *Frame) IsRegister() bool {
	return len(f.Header) == 0 && bytes.Equal(f.Payload, []byte(RegisterMarker))
}

const (
	frameIdentityField protowire.Number = 1
	frameHeaderField   protowire.Number = 2
	framePayloadField  protowire.Number = 3
)

// Marshal appends the wire representation of the frame to b.
func (f *Frame) Marshal(b []byte) []byte {
	if f.Identity != "" {
		b = protowire.AppendTag(b, frameIdentityField, protowire.BytesType)
		b = protowire.AppendString(b, f.Identity)
	}
	if len(f.Header) > 0 {
		b = protowire.AppendTag(b, frameHeaderField, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Header)
	}
	if len(f.Payload) > 0 {
		b = protowire.AppendTag(b, framePayloadField, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Payload)
	}
	return b
}

// Unmarshal parses a wire representation, skipping unknown fields.
func (f *Frame) Unmarshal(b []byte) error {
	*f = Frame{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("frame: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("frame: %w", protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		value, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("frame: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case frameIdentityField:
			f.Identity = string(value)
		case frameHeaderField:
			f.Header = bytes.Clone(value)
		case framePayloadField:
			f.Payload = bytes.Clone(value)
		}
	}

	return nil
}

// FrameCodecName is the gRPC content subtype of node streams.
const FrameCodecName = "jolt-frame"

// FrameCodec is the gRPC codec for Frame messages.
type FrameCodec struct{}

func (FrameCodec) Name() string { return FrameCodecName }

func (FrameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*Frame)
	if !ok {
		return nil, fmt.Errorf("frame codec: cannot marshal %T", v)
	}
	return f.Marshal(nil), nil
}

func (FrameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("frame codec: cannot unmarshal into %T", v)
	}
	return f.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(FrameCodec{})
}
