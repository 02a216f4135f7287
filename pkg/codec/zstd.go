package codec

import (
	"github.com/klauspost/compress/zstd"
)

type compressedCodec struct {
	inner Codec
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Compressed wraps a codec with zstd compression of the serialized bytes.
func Compressed(inner Codec) (Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &compressedCodec{inner: inner, enc: enc, dec: dec}, nil
}

func (c *compressedCodec) Name() string { return c.inner.Name() + compressedSuffix }

func (c *compressedCodec) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(data, nil), nil
}

func (c *compressedCodec) Unmarshal(data []byte, v any) error {
	plain, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(plain, v)
}
