package tfserving

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func init() {
	metric.Disable()
}

type recordedCall struct {
	method      string
	req         *dynamicpb.Message
	md          metadata.MD
	hasDeadline bool
	deadline    time.Time
}

// fakeConn records every Invoke and answers through respond.
type fakeConn struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(method string, req, reply *dynamicpb.Message) error
	closed  bool
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args any, reply any, _ ...grpc.CallOption) error {
	md, _ := metadata.FromOutgoingContext(ctx)
	deadline, hasDeadline := ctx.Deadline()

	// Round trip the request through the wire format so tests see what the server would decode.
	b, err := proto.Marshal(args.(proto.Message))
	if err != nil {
		return err
	}
	desc := tfproto.Method(method)
	if desc == nil {
		return errors.New("unknown method " + method)
	}
	decoded := dynamicpb.NewMessage(desc.Input())
	if err := proto.Unmarshal(b, decoded); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: method, req: decoded, md: md, hasDeadline: hasDeadline, deadline: deadline})
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return errors.New("grpc: the client connection is closing")
	}
	if f.respond == nil {
		return nil
	}
	return f.respond(method, decoded, reply.(*dynamicpb.Message))
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams are not supported")
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// fill replaces m with the message described by text.
func fill(m *dynamicpb.Message, text string) error {
	return prototext.Unmarshal([]byte(text), m)
}

// replyWith answers every call with the reply described by text.
func replyWith(text string) func(string, *dynamicpb.Message, *dynamicpb.Message) error {
	return func(_ string, _, reply *dynamicpb.Message) error {
		return fill(reply, text)
	}
}

// assertProto compares actual with the message of the same type described by expected.
func assertProto(t *testing.T, expected string, actual protoreflect.Message) {
	t.Helper()
	require.NotNil(t, actual)
	want := dynamicpb.NewMessage(actual.Descriptor())
	require.NoError(t, prototext.Unmarshal([]byte(expected), want))
	assert.True(t, proto.Equal(want, actual.Interface()),
		"expected\n%s\ngot\n%s", prototext.Format(want), prototext.Format(actual.Interface()))
}

// fakeDialer hands out conn and counts dial attempts.
type fakeDialer struct {
	mu      sync.Mutex
	conn    *fakeConn
	err     error
	targets []string
}

func (d *fakeDialer) Dial(_ context.Context, target string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, target)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func int64Ptr(v int64) *int64 { return &v }
