package taskgraph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/srand/jolt/node/pkg/store"
	"github.com/srand/jolt/node/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	data := store.NewMemoryStoreFrom(map[string]any{
		"x": uint64(1),
		"y": int64(2),
		"f": 0.5,
		"n": json.Number("10"),
	})
	g := New()

	testCases := []struct {
		task     any
		expected any
	}{
		{[]any{"add", "x", "y"}, int64(3)},
		{[]any{"add", "x", "f"}, 1.5},
		{[]any{"add", "n", []any{"inc", "y"}}, int64(13)},
		{[]any{"sub", "n", "x"}, int64(9)},
		{[]any{"mul", "y", "y", "y"}, int64(8)},
		{[]any{"div", "n", "y"}, 5.0},
		{[]any{"neg", "f"}, -0.5},
		{[]any{"sum", []any{"x", "y", 3}}, int64(6)},
		{[]any{"sum", []any{}}, int64(0)},
		{[]any{"max", "x", "f", "y"}, int64(2)},
		{[]any{"min", []any{"x", "f", "y"}}, 0.5},
		{[]any{"list", "x", "literal"}, []any{uint64(1), "literal"}},
		{[]any{"identity", "y"}, int64(2)},
		{[]any{"x", "y"}, []any{uint64(1), int64(2)}},
		{"x", uint64(1)},
		{"missing", "missing"},
		{true, true},
		{nil, nil},
	}

	for _, tc := range testCases {
		result, err := g.Evaluate(data, tc.task)
		require.NoError(t, err, tc.task)
		assert.Equal(t, tc.expected, result, tc.task)
	}
}

func TestEvaluateErrors(t *testing.T) {
	data := store.NewMemoryStoreFrom(map[string]any{"x": 1, "s": "text"})
	g := New()

	_, err := g.Evaluate(data, []any{"div", "x", 0})
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = g.Evaluate(data, []any{"add", "x", "s"})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = g.Evaluate(data, []any{"neg"})
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	// Errors in nested calls propagate
	_, err = g.Evaluate(data, []any{"list", []any{"inc", "s"}})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	g := New()
	g.Register("fail", func(args ...any) (any, error) {
		return nil, errors.New("boom")
	})
	assert.Contains(t, g.Operations(), "fail")

	_, err := g.Evaluate(store.NewMemoryStore(), []any{"fail"})
	assert.EqualError(t, err, "fail: boom")
}
