package codec

import (
	"bytes"
	"encoding/json"
)

type jsonCodec struct{}

// JSON returns a JSON codec. Numbers decode as json.Number to keep integers exact.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string                  { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
