// Package taskgraph evaluates task expressions against a data store.
//
// A task is a nested value decoded from the wire:
//
//   - a list whose first element names a registered operation is a call,
//     e.g. ["add", "x", ["inc", "y"]]
//   - a string naming a key present in the store evaluates to its value
//   - any other list evaluates element-wise
//   - everything else is a literal
package taskgraph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/srand/jolt/node/pkg/store"
	"github.com/srand/jolt/node/pkg/utils"
)

// Evaluator turns a task into a single value, resolving key references
// against data. Evaluators must not modify data.
type Evaluator interface {
	Evaluate(data store.Lookup, task any) (any, error)
}

// Operation is a function callable from a task.
type Operation func(args ...any) (any, error)

// Graph is the default Evaluator.
type Graph struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// New returns an evaluator with the builtin operations registered.
func New() *Graph {
	g := &Graph{ops: map[string]Operation{}}
	for name, op := range builtins {
		g.ops[name] = op
	}
	return g
}

// Register adds or replaces an operation.
func (g *Graph) Register(name string, op Operation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ops[name] = op
}

// Operations lists the registered operation names.
func (g *Graph) Operations() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.ops))
	for name := range g.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) lookup(name string) (Operation, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	op, ok := g.ops[name]
	return op, ok
}

func (g *Graph) Evaluate(data store.Lookup, task any) (any, error) {
	switch t := task.(type) {
	case string:
		if data.Has(t) {
			return data.Get(t)
		}
		return t, nil

	case []any:
		if len(t) > 0 {
			if name, ok := t[0].(string); ok {
				if op, ok := g.lookup(name); ok {
					return g.call(data, name, op, t[1:])
				}
			}
		}
		return g.evaluateAll(data, t)

	default:
		return task, nil
	}
}

func (g *Graph) evaluateAll(data store.Lookup, tasks []any) ([]any, error) {
	values := make([]any, len(tasks))
	for i, task := range tasks {
		value, err := g.Evaluate(data, task)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (g *Graph) call(data store.Lookup, name string, op Operation, args []any) (any, error) {
	values, err := g.evaluateAll(data, args)
	if err != nil {
		return nil, err
	}

	result, err := op(values...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}

// Static checks that Graph implements Evaluator
var _ Evaluator = (*Graph)(nil)

func errArity(want string, got int) error {
	return fmt.Errorf("%w: expected %s arguments, got %d", utils.ErrBadRequest, want, got)
}
