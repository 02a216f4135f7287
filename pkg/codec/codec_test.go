package codec

import (
	"testing"

	"github.com/spf13/cast"
	"github.com/srand/jolt/node/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type envelope struct {
	JobID    any            `json:"jobid,omitempty"`
	Function string         `json:"function"`
	Args     any            `json:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`
}

type CodecTestSuite struct {
	suite.Suite
	name string
}

func (s *CodecTestSuite) codec() Codec {
	c, err := Lookup(s.name)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.name, c.Name())
	return c
}

func (s *CodecTestSuite) TestStructuredValue() {
	c := s.codec()

	in := envelope{
		JobID:    "job-1",
		Function: "compute",
		Args: []any{
			"z",
			[]any{"add", "x", "y"},
			map[string]any{"x": []any{"tcp://alice:6464"}},
		},
		Kwargs: map[string]any{"flag": true},
	}

	data, err := c.Marshal(in)
	require.NoError(s.T(), err)

	var out envelope
	require.NoError(s.T(), c.Unmarshal(data, &out))

	assert.Equal(s.T(), "job-1", out.JobID)
	assert.Equal(s.T(), "compute", out.Function)
	assert.Equal(s.T(), true, out.Kwargs["flag"])

	args, ok := out.Args.([]any)
	require.True(s.T(), ok)
	require.Len(s.T(), args, 3)
	assert.Equal(s.T(), "z", args[0])
	assert.Equal(s.T(), []any{"add", "x", "y"}, args[1])

	locations, ok := args[2].(map[string]any)
	require.True(s.T(), ok, "nested maps decode with string keys")
	assert.Equal(s.T(), []any{"tcp://alice:6464"}, locations["x"])
}

func (s *CodecTestSuite) TestNumbersStayNumeric() {
	c := s.codec()

	data, err := c.Marshal([]any{1, -2, 2.5})
	require.NoError(s.T(), err)

	var out any
	require.NoError(s.T(), c.Unmarshal(data, &out))

	values := out.([]any)
	assert.Equal(s.T(), int64(1), cast.ToInt64(values[0]))
	assert.Equal(s.T(), int64(-2), cast.ToInt64(values[1]))
	assert.Equal(s.T(), 2.5, cast.ToFloat64(values[2]))
}

func (s *CodecTestSuite) TestNil() {
	c := s.codec()

	data, err := c.Marshal(nil)
	require.NoError(s.T(), err)

	var out any = "sentinel"
	require.NoError(s.T(), c.Unmarshal(data, &out))
	assert.Nil(s.T(), out)
}

func TestCodecs(t *testing.T) {
	for _, name := range []string{"cbor", "json", "proto", "cbor+zstd", "json+zstd"} {
		t.Run(name, func(t *testing.T) {
			suite.Run(t, &CodecTestSuite{name: name})
		})
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, Default, c.Name())

	_, err = Lookup("pickle")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	assert.Equal(t, []string{"cbor", "json", "proto"}, Names())
}

func TestCBORNullResetsTarget(t *testing.T) {
	c, err := Lookup("cbor")
	require.NoError(t, err)

	for _, data := range [][]byte{{0xf6}, {0xf7}} {
		var value any = "sentinel"
		require.NoError(t, c.Unmarshal(data, &value))
		assert.Nil(t, value)

		record := &envelope{Function: "status"}
		require.NoError(t, c.Unmarshal(data, record))
		assert.Equal(t, envelope{}, *record)
	}

	compressed, err := Lookup("cbor+zstd")
	require.NoError(t, err)

	data, err := compressed.Marshal(nil)
	require.NoError(t, err)

	values := map[string]any{"x": 1}
	require.NoError(t, compressed.Unmarshal(data, &values))
	assert.Nil(t, values)
}
