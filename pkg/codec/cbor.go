package codec

import (
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
)

const (
	cborNull      = 0xf6
	cborUndefined = 0xf7
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec. Maps decode to map[string]any.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) Name() string { return "cbor" }
func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

// Unmarshal decodes data into v. A null or undefined value resets v to
// its zero value, as the json codec does.
func (c cborCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 1 && (data[0] == cborNull || data[0] == cborUndefined) {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return c.dec.Unmarshal(data, v)
		}
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		return nil
	}
	return c.dec.Unmarshal(data, v)
}
