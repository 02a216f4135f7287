package node

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/srand/jolt/node/pkg/protocol"
	"github.com/srand/jolt/node/pkg/utils"
)

// handler is the uniform signature of registered functions.
type handler func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

type keyArgs struct {
	Key string `mapstructure:"key"`
}

type setItemArgs struct {
	Key   string `mapstructure:"key"`
	Value any    `mapstructure:"value"`
}

type collectArgs struct {
	Locations map[string][]string `mapstructure:"locations"`
}

type computeArgs struct {
	Key       string              `mapstructure:"key"`
	Task      any                 `mapstructure:"task"`
	Locations map[string][]string `mapstructure:"locations"`
}

func (n *Node) registry() map[protocol.Function]handler {
	return map[protocol.Function]handler{
		protocol.FunctionStatus:  bind(nil, 0, n.status),
		protocol.FunctionGetItem: bind([]string{"key"}, 1, n.getItem),
		protocol.FunctionSetItem: bind([]string{"key", "value"}, 2, n.setItem),
		protocol.FunctionDelItem: bind([]string{"key"}, 1, n.delItem),
		protocol.FunctionCollect: bind([]string{"locations"}, 1, n.collectItems),
		protocol.FunctionCompute: bind([]string{"key", "task", "locations"}, 2, n.computeItem),
	}
}

// bind adapts a typed function to a handler. Positional arguments are
// assigned to params in order, keyword arguments by name, and the
// first required params must be given one way or the other.
func bind[A any](params []string, required int, fn func(context.Context, *A) (any, error)) handler {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		a := new(A)
		if err := bindArgs(params, required, args, kwargs, a); err != nil {
			return nil, err
		}
		return fn(ctx, a)
	}
}

func bindArgs(params []string, required int, args []any, kwargs map[string]any, out any) error {
	if len(args) > len(params) {
		return fmt.Errorf("%w: takes %d arguments, %d given", utils.ErrBadRequest, len(params), len(args))
	}

	values := make(map[string]any, len(args)+len(kwargs))
	for i, arg := range args {
		values[params[i]] = arg
	}
	for key, value := range kwargs {
		if _, ok := values[key]; ok {
			return fmt.Errorf("%w: multiple values for argument %q", utils.ErrBadRequest, key)
		}
		values[key] = value
	}

	for _, param := range params[:required] {
		if _, ok := values[param]; !ok {
			return fmt.Errorf("%w: missing argument %q", utils.ErrBadRequest, param)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}
	return nil
}

type noArgs struct{}

func (n *Node) status(ctx context.Context, _ *noArgs) (any, error) {
	return protocol.StatusOK, nil
}

func (n *Node) getItem(ctx context.Context, a *keyArgs) (any, error) {
	return n.data.Get(a.Key)
}

func (n *Node) setItem(ctx context.Context, a *setItemArgs) (any, error) {
	n.data.Set(a.Key, a.Value)
	return nil, nil
}

func (n *Node) delItem(ctx context.Context, a *keyArgs) (any, error) {
	return nil, n.data.Delete(a.Key)
}

func (n *Node) collectItems(ctx context.Context, a *collectArgs) (any, error) {
	return nil, n.Collect(ctx, a.Locations)
}

func (n *Node) computeItem(ctx context.Context, a *computeArgs) (any, error) {
	return n.Compute(ctx, a.Key, a.Task, a.Locations), nil
}
