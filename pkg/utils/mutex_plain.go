//go:build !mutexdebug

package utils

import "sync"

type plainMutex struct {
	sync.RWMutex
}

// NewRWMutex returns a plain sync.RWMutex behind the RWMutex interface.
// Build with -tags mutexdebug to get the deadlock-detecting variant.
func NewRWMutex() RWMutex {
	return &plainMutex{}
}
