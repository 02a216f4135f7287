package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGrpcError(t *testing.T) {
	testCases := []struct {
		err  error
		code codes.Code
	}{
		{ErrNotFound, codes.NotFound},
		{fmt.Errorf("%w: x", ErrNotFound), codes.NotFound},
		{ErrBadRequest, codes.InvalidArgument},
		{ErrClosed, codes.Unavailable},
		{ErrPoolSaturated, codes.ResourceExhausted},
		{ErrCollectTimeout, codes.DeadlineExceeded},
	}

	for _, tc := range testCases {
		s, ok := status.FromError(GrpcError(tc.err))
		assert.True(t, ok, tc.err)
		assert.Equal(t, tc.code, s.Code(), tc.err)
	}

	other := errors.New("other")
	assert.Equal(t, other, GrpcError(other))
	assert.Nil(t, GrpcError(nil))
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(status.Error(codes.Unavailable, "gone")))
	assert.True(t, IsUnavailable(status.Error(codes.Canceled, "cancelled")))
	assert.False(t, IsUnavailable(status.Error(codes.NotFound, "missing")))
	assert.False(t, IsUnavailable(errors.New("plain")))
}
