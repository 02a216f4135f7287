package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcast(t *testing.T) {
	bc := NewBroadcast[string](1)
	assert.False(t, bc.HasConsumer())

	a := bc.NewConsumer()
	b := bc.NewConsumer()
	assert.True(t, bc.HasConsumer())

	assert.Equal(t, 2, bc.Send("one"))
	assert.Equal(t, "one", <-a.Chan)

	// b's buffer is full
	assert.Equal(t, 1, bc.Send("two"))
	assert.Equal(t, "one", <-b.Chan)
	assert.Equal(t, "two", <-a.Chan)

	b.Close()
	b.Close()
	_, ok := <-b.Chan
	assert.False(t, ok)

	bc.Close()
	_, ok = <-a.Chan
	assert.False(t, ok)

	c := bc.NewConsumer()
	_, ok = <-c.Chan
	assert.False(t, ok)
	assert.Equal(t, 0, bc.Send("three"))
}
