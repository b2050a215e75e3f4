package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConvertGrpcError maps the error of a failed remote call to an *Error. The original status stays
// in the chain, so status.FromError and status.Code keep working on the result.
func ConvertGrpcError(method string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransportError(method+" failed", err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return NewTransportError(method+" failed", err)
	}
	switch st.Code() {
	case codes.Unavailable:
		return NewConnectionError(method+" failed, server unavailable", err)
	case codes.Unimplemented:
		return NewUnimplementedError(method+" is not implemented by the server", err)
	default:
		return NewTransportError(method+" failed with "+st.Code().String(), err)
	}
}
