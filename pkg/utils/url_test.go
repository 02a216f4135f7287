package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGrpcUrl(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		fail     bool
	}{
		{"tcp://coordinator:9000", "coordinator:9000", false},
		{"tcp://coordinator", "coordinator:9090", false},
		{"tcp://127.0.0.1:0", "127.0.0.1:0", false},
		{"tcp://:6464", ":6464", false},
		{"tcp://[::1]:7000", "[::1]:7000", false},
		{"http://coordinator:9000", "", true},
		{"unix:///tmp/sock", "", true},
	}

	for _, tc := range testCases {
		host, err := ParseGrpcUrl(tc.input)
		if tc.fail {
			assert.Error(t, err, tc.input)
			continue
		}
		assert.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, host, tc.input)
	}
}

func TestParseHttpUrlDefaultPort(t *testing.T) {
	host, err := ParseHttpUrl("tcp://localhost")
	assert.NoError(t, err)
	assert.Equal(t, "localhost:8080", host)
}

func TestWithPort(t *testing.T) {
	uri, err := WithPort("tcp://127.0.0.1:0", 41234)
	assert.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:41234", uri)
	assert.Equal(t, "tcp://host:1", FormatTcpUrl("host:1"))
}
