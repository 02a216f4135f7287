package utils

import (
	"github.com/google/uuid"
)

type BroadcastConsumer[E any] struct {
	Chan      chan E
	ID        string
	Broadcast *Broadcast[E]
}

// Broadcast fans out every sent value to all current consumers.
// Sending never blocks: a consumer whose buffer is full misses the value.
type Broadcast[E any] struct {
	mu        RWMutex
	buffer    int
	consumers map[string]*BroadcastConsumer[E]
}

func NewBroadcast[E any](buffer int) *Broadcast[E] {
	return &Broadcast[E]{
		mu:        NewRWMutex(),
		buffer:    buffer,
		consumers: map[string]*BroadcastConsumer[E]{},
	}
}

func (bc *Broadcast[E]) NewConsumer() *BroadcastConsumer[E] {
	consumer := &BroadcastConsumer[E]{
		Chan:      make(chan E, bc.buffer),
		ID:        uuid.NewString(),
		Broadcast: bc,
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.consumers == nil {
		close(consumer.Chan)
		return consumer
	}
	bc.consumers[consumer.ID] = consumer
	return consumer
}

func (bc *Broadcast[E]) HasConsumer() bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.consumers) > 0
}

// Close closes the channels of all consumers. Consumers created
// afterwards get a closed channel.
func (bc *Broadcast[E]) Close() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	for _, consumer := range bc.consumers {
		close(consumer.Chan)
	}
	bc.consumers = nil
}

func (bc *Broadcast[E]) remove(bcc *BroadcastConsumer[E]) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if _, ok := bc.consumers[bcc.ID]; !ok {
		return false
	}
	delete(bc.consumers, bcc.ID)
	close(bcc.Chan)
	return true
}

func (bcc *BroadcastConsumer[E]) Close() {
	bcc.Broadcast.remove(bcc)
}

// Send delivers data to all consumers with room in their buffer and
// returns the number of consumers reached.
func (bc *Broadcast[E]) Send(data E) int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	delivered := 0
	for _, c := range bc.consumers {
		select {
		case c.Chan <- data:
			delivered++
		default:
		}
	}
	return delivered
}
