package log

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldLog(t *testing.T) {
	assert.True(t, ShouldLog(InfoLevel, InfoLevel))
	assert.True(t, ShouldLog(ErrorLevel, DebugLevel))
	assert.False(t, ShouldLog(DebugLevel, InfoLevel))
	assert.False(t, ShouldLog(InfoLevel, DisabledLevel))
	assert.False(t, ShouldLog("bogus", InfoLevel))
}

func TestLoggerSplitsStreams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := New(&stdout, &stderr, DebugLevel)

	l.Debugf("receive job %d", 1)
	l.Trace("hidden")
	l.Warn("careful")

	assert.Contains(t, stdout.String(), "receive job 1")
	assert.Contains(t, stdout.String(), "- debug -")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stderr.String(), "careful")
}

func TestLoggerSetLevel(t *testing.T) {
	var stdout bytes.Buffer
	l := New(&stdout, &stdout, InfoLevel)

	assert.Error(t, l.SetLevel("loud"))
	assert.NoError(t, l.SetLevel(TraceLevel))
	assert.Equal(t, LogLevel(TraceLevel), l.GetLevel())

	l.Trace("now visible")
	assert.Contains(t, stdout.String(), "now visible")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	assert.Equal(t, LogLevel(DisabledLevel), l.GetLevel())
}

func TestDebugError(t *testing.T) {
	var stdout bytes.Buffer
	l := New(&stdout, &stdout, DebugLevel)

	inner := errors.New("connection refused")
	l.DebugError(fmt.Errorf("dial peer: %w", inner))

	assert.Contains(t, stdout.String(), "dial peer: connection refused")
	assert.Contains(t, stdout.String(), "| 1: connection refused")
}
