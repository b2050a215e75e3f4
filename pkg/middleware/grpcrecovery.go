package middleware

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCClientRecovery turns a panic raised while encoding, sending or decoding an outgoing call into
// a codes.Internal error.
func GRPCClientRecovery(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Panic occurred in call %s: %v\n%s", method, r, debug.Stack())
			err = status.Errorf(codes.Internal, "panic recovered: %v", r)
		}
	}()
	return invoker(ctx, method, req, reply, cc, opts...)
}
