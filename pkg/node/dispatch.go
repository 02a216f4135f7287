package node

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/srand/jolt/node/pkg/protocol"
)

// A decoded request ready for execution.
type job struct {
	req *protocol.Request

	// Reply destination, nil if no reply is wanted.
	sink replySink

	// Set if the request could not be decoded.
	err error
}

// Polls the coordinator channel until the node is closed.
func (n *Node) listenToCoordinator() {
	defer n.loops.Done()

	for !n.closed.Load() {
		select {
		case frame := <-n.coordinator.inbox:
			n.dispatch(frame, n.coordinator, func() {})
		case <-time.After(n.opts.PollInterval):
		}
	}
}

// Polls the peer channel until the node is closed.
func (n *Node) listenToPeers() {
	defer n.loops.Done()

	for !n.closed.Load() {
		select {
		case in := <-n.peers.inbox:
			n.dispatch(in.frame, in.stream, in.stream.done)
		case <-time.After(n.opts.PollInterval):
		}
	}
}

// Decodes a frame and submits it to the pool. Never blocks: if the pool
// is saturated the request is rejected with an error reply. done is
// called once the request has been fully handled.
func (n *Node) dispatch(frame *protocol.Frame, sink replySink, done func()) {
	n.stats.received.Add(1)

	j := &job{}
	j.req, j.err = protocol.DecodeRequest(n.codec, frame)
	if j.err != nil {
		n.logger.Warn(n.address, "Malformed request from", sink, ":", j.err)

		// Salvage what the header tells about correlation
		j.req = &protocol.Request{Reply: true}
		if header, err := protocol.DecodeHeader(n.codec, frame); err == nil {
			j.req.JobID = header.JobID
			j.req.Reply = header.WantsReply()
		}
	} else {
		n.logger.Debug(n.address, "Receive job from", sink, j.req.JobID, j.req.Function)
	}

	if j.req.Reply {
		j.sink = sink
	}

	err := n.pool.Submit(func() {
		defer done()
		n.execute(j)
	})
	if err == nil {
		return
	}

	n.stats.rejected.Add(1)
	n.logger.Warn(n.address, "Rejected job from", sink, j.req.JobID, j.req.Function, ":", err)

	if j.sink == nil {
		done()
		return
	}

	// Reply off the polling loop, the send may block
	if n.pool.Go(func() {
		defer done()
		n.reply(j, protocol.StatusError, err.Error())
	}) != nil {
		done()
	}
}

// Runs a job on a pool slot and replies if a reply is wanted.
func (n *Node) execute(j *job) {
	var result any
	var status string

	if j.err != nil {
		result, status = j.err.Error(), protocol.StatusError
	} else {
		result, status = n.call(j.req)
	}

	switch {
	case status == protocol.StatusOK:
		n.stats.succeeded.Add(1)
	case status == protocol.StatusError:
		n.stats.failed.Add(1)
	default:
		n.stats.notFound.Add(1)
	}

	n.logger.Debug(n.address, "Finish computation", j.req.JobID, j.req.Function, status)

	if j.sink != nil {
		n.reply(j, status, result)
	}
}

// Resolves and invokes the requested function. Failures, including
// panics, are turned into a status and a description.
func (n *Node) call(req *protocol.Request) (result any, status string) {
	fn, ok := n.functions[protocol.Function(req.Function)]
	if !ok {
		return fmt.Sprintf("unknown function: %q", req.Function), protocol.StatusNotFound(req.Function)
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorf("%s Panic in %s: %v\n%s", n.address, req.Function, r, debug.Stack())
			result, status = fmt.Sprintf("panic: %v", r), protocol.StatusError
		}
	}()

	value, err := fn(n.context(), req.Args, req.Kwargs)
	if err != nil {
		return err.Error(), protocol.StatusError
	}
	return value, protocol.StatusOK
}

// Sends a reply, stamped with the node identity, through the job's sink.
func (n *Node) reply(j *job, status string, result any) {
	header := &protocol.Header{JobID: j.req.JobID, Status: status}

	frame, err := protocol.EncodeReply(n.codec, n.address, header, result)
	if err != nil {
		n.logger.Warn(n.address, "Failed to encode result of", j.req.JobID, ":", err)

		header = &protocol.Header{JobID: j.req.JobID, Status: protocol.StatusError}
		frame, err = protocol.EncodeReply(n.codec, n.address, header, fmt.Sprintf("unserializable result: %v", err))
		if err != nil {
			n.logger.Error(n.address, "Failed to encode reply:", err)
			return
		}
	}

	n.logger.Debug(n.address, "Send to", j.sink, header.JobID, header.Status)

	if err := j.sink.send(frame); err != nil {
		n.logger.Debug(n.address, "Reply to", j.sink, "dropped:", err)
	}
}
