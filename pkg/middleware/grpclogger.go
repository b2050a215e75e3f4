package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// GRPCClientLogger writes an access log line for every outgoing unary call.
func GRPCClientLogger(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	startTime := time.Now()
	err := invoker(ctx, method, req, reply, cc, opts...)
	latency := time.Since(startTime)

	target := ""
	if cc != nil {
		target = cc.Target()
	}
	log.Debug().Msgf("[access] [%s] %s %s %v", target, method, status.Code(err), latency)
	return err
}
