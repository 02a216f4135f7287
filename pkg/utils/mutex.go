package utils

// RWMutex guards shared node state such as the data store. Build with
// -tags mutexdebug to make a lock that cannot be acquired in time panic
// with the stack of the goroutine holding it.
type RWMutex interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
	TryLock() bool
}
