// Package servingtest runs an in-process model server that speaks the TensorFlow Serving protocol,
// for tests.
package servingtest

import (
	"context"
	"net"
	"testing"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Handler answers one method. req is decoded against the method's request type.
type Handler func(ctx context.Context, req *dynamicpb.Message) (proto.Message, error)

// Handlers maps a full method path, such as tfproto.MethodPredict, to its Handler.
type Handlers map[string]Handler

// Start serves handlers on a loopback port until the test ends and returns the "host:port"
// address. Methods without a handler fail with codes.Unimplemented.
func Start(t testing.TB, handlers Handlers) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := grpc.NewServer(grpc.UnknownServiceHandler(handlers.serve))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)
	return lis.Addr().String()
}

func (h Handlers) serve(_ any, stream grpc.ServerStream) error {
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "method not available from the stream")
	}
	handler, ok := h[method]
	md := tfproto.Method(method)
	if !ok || md == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	req := dynamicpb.NewMessage(md.Input())
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	resp, err := handler(stream.Context(), req)
	if err != nil {
		return err
	}
	return stream.SendMsg(resp)
}

// Reply parses the text format of method's response message.
func Reply(t testing.TB, method, text string) *dynamicpb.Message {
	t.Helper()
	resp := tfproto.NewReply(method)
	require.NoError(t, prototext.Unmarshal([]byte(text), resp))
	return resp
}
