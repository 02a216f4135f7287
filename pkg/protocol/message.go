package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/srand/jolt/node/pkg/codec"
	"github.com/srand/jolt/node/pkg/utils"
)

// Function names an operation in a node's function registry.
type Function string

const (
	FunctionStatus  Function = "status"
	FunctionGetItem Function = "getitem"
	FunctionSetItem Function = "setitem"
	FunctionDelItem Function = "delitem"
	FunctionCollect Function = "collect"
	FunctionCompute Function = "compute"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusNotFound is the reply status of a request naming an unknown function.
func StatusNotFound(function string) string {
	return fmt.Sprintf("Function %s not found", function)
}

// IsNotFoundStatus returns true if the status reports an unknown function.
func IsNotFoundStatus(status string) bool {
	return strings.HasPrefix(status, "Function ") && strings.HasSuffix(status, " not found")
}

// Header is the first part of every message.
type Header struct {
	// Opaque correlation token echoed in the reply.
	JobID any `json:"jobid,omitempty"`

	// Function the sender wants executed. Informational, the payload is authoritative.
	Function string `json:"function,omitempty"`

	// Address of the sender, filled in just before transmission.
	Address string `json:"address,omitempty"`

	// Whether a reply is wanted. Absent means yes.
	Reply *bool `json:"reply,omitempty"`

	// Result status, set on replies only.
	Status string `json:"status,omitempty"`
}

// WantsReply returns true unless the sender explicitly opted out.
func (h *Header) WantsReply() bool {
	return h.Reply == nil || *h.Reply
}

// Payload is the second part of a request.
type Payload struct {
	Function string         `json:"function"`
	Args     any            `json:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`
}

// Request is a decoded inbound request with defaults applied.
type Request struct {
	JobID    any
	Function string
	Args     []any
	Kwargs   map[string]any
	Reply    bool
	Address  string
}

// NormalizeArgs turns a decoded args value into a sequence.
// A missing value is the empty sequence and a single value becomes a
// sequence of one.
func NormalizeArgs(args any) []any {
	switch a := args.(type) {
	case nil:
		return []any{}
	case []any:
		return a
	default:
		return []any{a}
	}
}

// EncodeRequest serializes a request into a frame.
func EncodeRequest(c codec.Codec, address string, req *Request) (*Frame, error) {
	header := Header{
		JobID:    req.JobID,
		Function: req.Function,
		Address:  address,
	}
	if !req.Reply {
		noReply := false
		header.Reply = &noReply
	}

	payload := Payload{
		Function: req.Function,
		Args:     req.Args,
		Kwargs:   req.Kwargs,
	}

	return encodeFrame(c, address, &header, &payload)
}

// DecodeRequest deserializes a request frame and applies the defaults:
// no job id, reply wanted, empty args and kwargs.
func DecodeRequest(c codec.Codec, frame *Frame) (*Request, error) {
	header, err := DecodeHeader(c, frame)
	if err != nil {
		return nil, err
	}

	payload := Payload{}
	if err := c.Unmarshal(frame.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", utils.ErrParse, err)
	}

	kwargs := payload.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	address := header.Address
	if address == "" {
		address = frame.Identity
	}

	return &Request{
		JobID:    header.JobID,
		Function: payload.Function,
		Args:     NormalizeArgs(payload.Args),
		Kwargs:   kwargs,
		Reply:    header.WantsReply(),
		Address:  address,
	}, nil
}

// DecodeHeader deserializes the header of a frame. An empty header is
// a header with all fields absent.
func DecodeHeader(c codec.Codec, frame *Frame) (*Header, error) {
	header := &Header{}
	if len(frame.Header) > 0 {
		if err := c.Unmarshal(frame.Header, header); err != nil {
			return nil, fmt.Errorf("%w: header: %v", utils.ErrParse, err)
		}
	}
	return header, nil
}

// EncodeReply serializes a reply into a frame.
func EncodeReply(c codec.Codec, address string, header *Header, result any) (*Frame, error) {
	header.Address = address
	return encodeFrame(c, address, header, result)
}

func encodeFrame(c codec.Codec, identity string, header *Header, payload any) (*Frame, error) {
	h, err := c.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	p, err := c.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	return &Frame{Identity: identity, Header: h, Payload: p}, nil
}

// JobRecord is the outcome of a computation, returned by compute.
type JobRecord struct {
	Key string `json:"key"`
	// Elapsed evaluation time in seconds.
	Duration float64 `json:"duration"`
	Status   string  `json:"status"`
}

func (r *JobRecord) OK() bool {
	return r.Status == StatusOK
}

func (r *JobRecord) Elapsed() time.Duration {
	return time.Duration(r.Duration * float64(time.Second))
}

// Locations converts a key to addresses mapping into the generic form
// used in request arguments.
func Locations(locations map[string][]string) map[string]any {
	arg := make(map[string]any, len(locations))
	for key, addrs := range locations {
		list := make([]any, len(addrs))
		for i, addr := range addrs {
			list[i] = addr
		}
		arg[key] = list
	}
	return arg
}
