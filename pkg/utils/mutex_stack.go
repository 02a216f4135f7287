//go:build mutexdebug

package utils

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

const lockTimeout = 30 * time.Second

// stackMutex records where the write lock was taken and panics with
// that stack if another locker waits for longer than the timeout.
type stackMutex struct {
	mu      sync.RWMutex
	timeout time.Duration

	holderMu sync.Mutex
	holder   string
	readers  int
}

func NewRWMutex() RWMutex {
	return &stackMutex{timeout: lockTimeout}
}

func callerStack() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

// Acquires the lock with try, polling until the timeout expires.
func (m *stackMutex) acquire(try func() bool, what string) {
	deadline := time.Now().Add(m.timeout)
	for !try() {
		if time.Now().After(deadline) {
			m.holderMu.Lock()
			holder, readers := m.holder, m.readers
			m.holderMu.Unlock()
			panic(fmt.Sprintf("%s not acquired within %v (readers: %d)\nwaiter:\n%s\nholder:\n%s",
				what, m.timeout, readers, callerStack(), holder))
		}
		time.Sleep(time.Millisecond)
	}
}

func (m *stackMutex) Lock() {
	m.acquire(m.mu.TryLock, "write lock")

	m.holderMu.Lock()
	m.holder = callerStack()
	m.holderMu.Unlock()
}

func (m *stackMutex) Unlock() {
	m.holderMu.Lock()
	m.holder = ""
	m.holderMu.Unlock()

	m.mu.Unlock()
}

func (m *stackMutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}

	m.holderMu.Lock()
	m.holder = callerStack()
	m.holderMu.Unlock()
	return true
}

func (m *stackMutex) RLock() {
	m.acquire(m.mu.TryRLock, "read lock")

	m.holderMu.Lock()
	m.readers++
	m.holderMu.Unlock()
}

func (m *stackMutex) RUnlock() {
	m.holderMu.Lock()
	m.readers--
	m.holderMu.Unlock()

	m.mu.RUnlock()
}
