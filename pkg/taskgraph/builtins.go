package taskgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cast"
	"github.com/srand/jolt/node/pkg/utils"
)

var ErrDivisionByZero = errors.New("division by zero")

var builtins = map[string]Operation{
	"add":      opAdd,
	"sub":      opSub,
	"mul":      opMul,
	"div":      opDiv,
	"neg":      opNeg,
	"inc":      opInc,
	"sum":      opSum,
	"max":      opMax,
	"min":      opMin,
	"list":     opList,
	"identity": opIdentity,
}

// number is an operand coerced to int64 when it is integral, float64 otherwise.
type number struct {
	i       int64
	f       float64
	integer bool
}

func (n number) float() float64 {
	if n.integer {
		return float64(n.i)
	}
	return n.f
}

func (n number) value() any {
	if n.integer {
		return n.i
	}
	return n.f
}

func toNumber(v any) (number, error) {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := cast.ToInt64E(x)
		if err != nil {
			return number{}, fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
		}
		return number{i: i, integer: true}, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return number{i: i, integer: true}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return number{}, fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
		}
		return number{f: f}, nil
	case float32, float64:
		return number{f: cast.ToFloat64(x)}, nil
	}
	return number{}, fmt.Errorf("%w: not a number: %v (%T)", utils.ErrBadRequest, v, v)
}

func toNumbers(args []any) ([]number, bool, error) {
	numbers := make([]number, len(args))
	integer := true
	for i, arg := range args {
		n, err := toNumber(arg)
		if err != nil {
			return nil, false, err
		}
		numbers[i] = n
		integer = integer && n.integer
	}
	return numbers, integer, nil
}

// fold applies an integer or float operation pairwise from left to right.
func fold(args []any, ints func(a, b int64) int64, floats func(a, b float64) float64) (any, error) {
	if len(args) == 0 {
		return nil, errArity("at least 1", 0)
	}

	numbers, integer, err := toNumbers(args)
	if err != nil {
		return nil, err
	}

	if integer {
		acc := numbers[0].i
		for _, n := range numbers[1:] {
			acc = ints(acc, n.i)
		}
		return acc, nil
	}

	acc := numbers[0].float()
	for _, n := range numbers[1:] {
		acc = floats(acc, n.float())
	}
	return acc, nil
}

func opAdd(args ...any) (any, error) {
	return fold(args,
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func opSub(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, errArity("2", len(args))
	}
	return fold(args,
		func(a, b int64) int64 { return a - b },
		func(a, b float64) float64 { return a - b })
}

func opMul(args ...any) (any, error) {
	return fold(args,
		func(a, b int64) int64 { return a * b },
		func(a, b float64) float64 { return a * b })
}

// div is true division and always yields a float.
func opDiv(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, errArity("2", len(args))
	}

	numbers, _, err := toNumbers(args)
	if err != nil {
		return nil, err
	}
	if numbers[1].float() == 0 {
		return nil, ErrDivisionByZero
	}
	return numbers[0].float() / numbers[1].float(), nil
}

func opNeg(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, errArity("1", len(args))
	}
	n, err := toNumber(args[0])
	if err != nil {
		return nil, err
	}
	if n.integer {
		return -n.i, nil
	}
	return -n.f, nil
}

func opInc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, errArity("1", len(args))
	}
	return opAdd(args[0], int64(1))
}

// elements accepts either a single list argument or the arguments themselves.
func elements(args []any) []any {
	if len(args) == 1 {
		if list, ok := args[0].([]any); ok {
			return list
		}
	}
	return args
}

func opSum(args ...any) (any, error) {
	values := elements(args)
	if len(values) == 0 {
		return int64(0), nil
	}
	return opAdd(values...)
}

func extreme(args []any, better func(a, b float64) bool) (any, error) {
	values := elements(args)
	if len(values) == 0 {
		return nil, errArity("at least 1", 0)
	}

	numbers, _, err := toNumbers(values)
	if err != nil {
		return nil, err
	}

	best := numbers[0]
	for _, n := range numbers[1:] {
		if better(n.float(), best.float()) {
			best = n
		}
	}
	return best.value(), nil
}

func opMax(args ...any) (any, error) {
	return extreme(args, func(a, b float64) bool { return a > b || math.IsNaN(b) })
}

func opMin(args ...any) (any, error) {
	return extreme(args, func(a, b float64) bool { return a < b || math.IsNaN(b) })
}

func opList(args ...any) (any, error) {
	return append([]any{}, args...), nil
}

func opIdentity(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, errArity("1", len(args))
	}
	return args[0], nil
}
