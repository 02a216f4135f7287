//go:build mutexdebug

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStackMutexLock(t *testing.T) {
	m := NewRWMutex().(*stackMutex)

	m.Lock()
	assert.Contains(t, m.holder, "TestStackMutexLock")
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.Empty(t, m.holder)

	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestStackMutexRLock(t *testing.T) {
	m := NewRWMutex().(*stackMutex)

	m.RLock()
	m.RLock()
	assert.Equal(t, 2, m.readers)
	assert.False(t, m.TryLock())
	m.RUnlock()
	m.RUnlock()

	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestStackMutexTimeout(t *testing.T) {
	m := NewRWMutex().(*stackMutex)
	m.timeout = 10 * time.Millisecond

	m.Lock()
	defer m.Unlock()

	assert.Panics(t, func() { m.RLock() })
}
