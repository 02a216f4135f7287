package node

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/srand/jolt/node/pkg/client"
	"github.com/srand/jolt/node/pkg/journal"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// An outstanding getitem request.
type fetch struct {
	key    string
	client *client.Client
	reply  <-chan *protocol.Reply
}

// Collect fetches the values of keys not present locally from one
// randomly chosen peer each and stores them under their key.
//
// All requests are sent before any reply is awaited. Collect returns
// when every reply has arrived, or with the first failure. Unless a
// collect timeout is configured an unresponsive peer blocks it forever.
func (n *Node) Collect(ctx context.Context, locations map[string][]string) error {
	n.logger.Debug(n.address, "Collect data from peers", locations)

	keys := make([]string, 0, len(locations))
	for key := range locations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if n.opts.CollectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.opts.CollectTimeout)
		defer cancel()
	}

	clients := map[string]*client.Client{}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	fetches := []fetch{}
	for _, key := range keys {
		if n.data.Has(key) {
			continue
		}

		candidates := locations[key]
		if len(candidates) == 0 {
			return fmt.Errorf("%w: no location for key %q", utils.ErrBadRequest, key)
		}
		address := candidates[rand.IntN(len(candidates))]

		c, ok := clients[address]
		if !ok {
			var err error
			c, err = client.Dial(ctx, address, client.Options{
				Codec:          n.codec,
				Address:        n.address,
				MaxMessageSize: n.opts.MaxMessageSize,
				DialOptions:    n.opts.Grpc.ToDialOptions(),
				CallOptions:    n.callOptions(),
				Logger:         n.logger,
			})
			if err != nil {
				return n.collectError(ctx, key, address, err)
			}
			clients[address] = c
		}

		reply, err := c.Go(&protocol.Request{
			JobID:    key,
			Function: string(protocol.FunctionGetItem),
			Args:     []any{key},
		})
		if err != nil {
			return n.collectError(ctx, key, address, err)
		}

		fetches = append(fetches, fetch{key: key, client: c, reply: reply})
	}

	if len(fetches) == 0 {
		return nil
	}

	n.logger.Debug(n.address, "Waiting on data replies")

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		g.Go(func() error {
			reply, err := f.client.Wait(gctx, f.key, f.reply)
			if err != nil {
				return n.collectError(ctx, f.key, f.client.URI(), err)
			}
			if err := reply.Err(); err != nil {
				return fmt.Errorf("collect %s from %s: %w", f.key, reply.Address, err)
			}

			value, err := reply.Value()
			if err != nil {
				return fmt.Errorf("collect %s from %s: %w", f.key, reply.Address, err)
			}

			n.logger.Debug(n.address, "Receive data", reply.Address, reply.JobID)
			n.data.Set(protocol.JobKey(reply.JobID), value)
			n.stats.collected.Add(1)
			return nil
		})
	}

	return g.Wait()
}

func (n *Node) collectError(ctx context.Context, key, address string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s from %s", utils.ErrCollectTimeout, key, address)
	}
	return fmt.Errorf("collect %s from %s: %w", key, address, err)
}

// Compute collects the dependencies of a task, evaluates it against the
// local data and stores the result under key. The result is stored only
// if evaluation succeeds; a failure is reported in the record status.
func (n *Node) Compute(ctx context.Context, key string, task any, locations map[string][]string) *protocol.JobRecord {
	record := &protocol.JobRecord{Key: key}

	if err := n.Collect(ctx, locations); err != nil {
		record.Status = err.Error()
		n.finishCompute(record, task)
		return record
	}

	n.logger.Debug(n.address, "Start computation", key, task)

	start := time.Now()
	result, err := n.opts.Evaluator.Evaluate(n.data, task)
	record.Duration = time.Since(start).Seconds()

	if err != nil {
		record.Status = err.Error()
	} else {
		n.data.Set(key, result)
		record.Status = protocol.StatusOK
	}

	n.finishCompute(record, task)
	return record
}

func (n *Node) finishCompute(record *protocol.JobRecord, task any) {
	n.logger.Debug(n.address, "End computation", record.Key, task, record.Status)

	if record.OK() {
		n.stats.computed.Add(1)
	} else {
		n.stats.computeFailed.Add(1)
	}

	if n.opts.Journal == nil {
		return
	}

	err := n.opts.Journal.Record(journal.Entry{
		Node:     n.address,
		Key:      record.Key,
		Duration: record.Duration,
		Status:   record.Status,
	})
	if err != nil {
		n.logger.Warn(n.address, "Failed to journal", record.Key, ":", err)
	}
}
