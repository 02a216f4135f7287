package utils

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrBadRequest     = fmt.Errorf("Bad request")
	ErrClosed         = fmt.Errorf("Node is closed")
	ErrCollectTimeout = fmt.Errorf("Timed out collecting data from peers")
	ErrNotFound       = fmt.Errorf("Not found")
	ErrParse          = fmt.Errorf("Parse error")
	ErrPoolClosed     = fmt.Errorf("Execution pool is closed")
	ErrPoolSaturated  = fmt.Errorf("Execution pool saturated")
)

type DetailedError interface {
	error
	Details() string
}

// Convert errors to errors with grpc status codes
func GrpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrClosed), errors.Is(err, ErrPoolClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrPoolSaturated):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrCollectTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return err
}

// IsUnavailable returns true if the error is a gRPC error indicating
// that the remote end went away or could not be reached.
func IsUnavailable(err error) bool {
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.Canceled:
		return true
	}
	return false
}
