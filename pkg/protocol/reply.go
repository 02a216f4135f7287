package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/utils"
)

// Reply is a decoded reply. The payload stays serialized until the
// receiver decides what type to decode it into.
type Reply struct {
	JobID   any
	Status  string
	Address string
	Payload []byte

	codec codec.Codec
}

// DecodeReply deserializes the header of a reply frame.
func DecodeReply(c codec.Codec, frame *Frame) (*Reply, error) {
	header, err := DecodeHeader(c, frame)
	if err != nil {
		return nil, err
	}

	address := header.Address
	if address == "" {
		address = frame.Identity
	}

	return &Reply{
		JobID:   header.JobID,
		Status:  header.Status,
		Address: address,
		Payload: frame.Payload,
		codec:   c,
	}, nil
}

func (r *Reply) OK() bool {
	return r.Status == StatusOK
}

// Decode deserializes the payload into v.
func (r *Reply) Decode(v any) error {
	return r.codec.Unmarshal(r.Payload, v)
}

// Value deserializes the payload into a generic value.
func (r *Reply) Value() (any, error) {
	var v any
	err := r.Decode(&v)
	return v, err
}

// Err returns nil for successful replies and a ReplyError otherwise.
func (r *Reply) Err() error {
	if r.OK() {
		return nil
	}

	var description any
	if err := r.Decode(&description); err != nil {
		description = err.Error()
	}

	return &ReplyError{Status: r.Status, Description: fmt.Sprint(description)}
}

// ReplyError is a non-OK reply turned into an error.
type ReplyError struct {
	Status      string
	Description string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Description)
}

func (e *ReplyError) Details() string {
	return e.Description
}

// JobKey turns an opaque job id into a lookup key. Job ids change concrete
// type when they cross a serializer, e.g. int becomes uint64, so they are
// compared by their printed form.
func JobKey(jobid any) string {
	return fmt.Sprint(jobid)
}

var ErrDuplicateJob = errors.New("Duplicate job id")

// Pending correlates outstanding requests with their replies by job id.
type Pending struct {
	mu    sync.Mutex
	calls map[string]chan *Reply
	err   error
}

func NewPending() *Pending {
	return &Pending{calls: map[string]chan *Reply{}}
}

// Add registers a job id and returns the channel its reply is delivered on.
// The channel is closed without a value if the pending set is closed first.
func (p *Pending) Add(jobid any) (<-chan *Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	key := JobKey(jobid)
	if _, ok := p.calls[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, key)
	}

	ch := make(chan *Reply, 1)
	p.calls[key] = ch
	return ch, nil
}

// Remove forgets a job id, e.g. after its caller gave up waiting.
func (p *Pending) Remove(jobid any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.calls, JobKey(jobid))
}

// Deliver hands a reply to the caller waiting for its job id.
// Returns false if nobody is waiting.
func (p *Pending) Deliver(reply *Reply) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := JobKey(reply.JobID)
	ch, ok := p.calls[key]
	if !ok {
		return false
	}
	delete(p.calls, key)
	ch <- reply
	return true
}

// Len returns the number of outstanding job ids.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Close fails all outstanding and future calls with err.
func (p *Pending) Close(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return
	}
	if err == nil {
		err = utils.ErrClosed
	}
	p.err = err

	for key, ch := range p.calls {
		close(ch)
		delete(p.calls, key)
	}
}

// Err returns the error the pending set was closed with.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
