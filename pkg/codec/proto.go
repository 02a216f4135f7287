package codec

import (
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type protoCodec struct {
	json Codec
}

// Proto returns a codec emitting google.protobuf.Value messages, for
// peers that speak protobuf rather than CBOR. Values are mapped through
// their JSON representation, so everything JSON can carry is supported.
func Proto() Codec { return protoCodec{json: JSON()} }

func (protoCodec) Name() string { return "proto" }

func (c protoCodec) Marshal(v any) ([]byte, error) {
	data, err := c.json.Marshal(v)
	if err != nil {
		return nil, err
	}

	value := &structpb.Value{}
	if err := protojson.Unmarshal(data, value); err != nil {
		return nil, err
	}

	return proto.Marshal(value)
}

func (c protoCodec) Unmarshal(data []byte, v any) error {
	value := &structpb.Value{}
	if err := proto.Unmarshal(data, value); err != nil {
		return err
	}

	// An empty message is a null value.
	if value.GetKind() == nil {
		value = structpb.NewNullValue()
	}

	js, err := protojson.Marshal(value)
	if err != nil {
		return err
	}

	return c.json.Unmarshal(js, v)
}
