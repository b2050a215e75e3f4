// Package grpcclient opens gRPC connections to external services and records request metrics for
// every unary call made through them.
package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const DefaultLoadBalancingPolicy = "round_robin"

type Config struct {
	Host string
	Port string
	// ConnectTimeout bounds the wait for the connection to become ready. Zero connects lazily on
	// the first call.
	ConnectTimeout      time.Duration
	LoadBalancingPolicy string
	PlainText           bool
	InsecureSkipVerify  bool
	// DialOptions are appended after the options derived from the fields above.
	DialOptions []grpc.DialOption
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

type GRPCClient struct {
	Conn                *grpc.ClientConn
	externalServiceName string
}

// NewConn creates a client connection for config. With a ConnectTimeout it blocks until the
// connection is ready, the timeout passes or ctx is done.
func NewConn(ctx context.Context, config *Config, externalServiceName string) (*GRPCClient, error) {
	if config.Host == "" {
		return nil, errors.New("host is not set")
	}
	if config.Port == "" {
		return nil, errors.New("port is not set")
	}
	if config.LoadBalancingPolicy == "" {
		config.LoadBalancingPolicy = DefaultLoadBalancingPolicy
	}

	var creds credentials.TransportCredentials
	if config.PlainText {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: config.InsecureSkipVerify})
	}
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"` + config.LoadBalancingPolicy + `"}`),
	}, config.DialOptions...)

	conn, err := grpc.NewClient(config.Address(), opts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("address", config.Address()).Bool("plain_text", config.PlainText).
		Str("load_balancing_policy", config.LoadBalancingPolicy).Msg("gRPC client created")

	if config.ConnectTimeout > 0 {
		if err := waitForReady(ctx, conn, config.ConnectTimeout); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("connecting to %s: %w", config.Address(), err)
		}
	}
	return &GRPCClient{Conn: conn, externalServiceName: externalServiceName}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("connection is in state %s", state)
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connection not ready, last state %s: %w", state, ctx.Err())
		}
	}
}

// Invoke is a wrapper around grpc.ClientConn.Invoke that records count and latency metrics for the
// external service.
func (c *GRPCClient) Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error {
	startTime := time.Now()
	err := c.Conn.Invoke(ctx, method, args, reply, opts...)
	tags := BuildExternalGRPCServiceTags(c.externalServiceName, method, int(status.Code(err)))
	metric.Timing(metric.ExternalApiRequestLatency, time.Since(startTime), tags)
	metric.Incr(metric.ExternalApiRequestCount, tags)
	return err
}

func (c *GRPCClient) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.Conn.NewStream(ctx, desc, method, opts...)
}

func (c *GRPCClient) Close() error {
	return c.Conn.Close()
}

func BuildExternalGRPCServiceTags(service, method string, statusCode int) []string {
	return metric.BuildTag(
		metric.NewTag(metric.TagCommunicationProtocol, metric.TagValueCommunicationProtocolGrpc),
		metric.NewTag(metric.TagExternalService, service),
		metric.NewTag(metric.TagMethod, method),
		metric.NewTag(metric.TagGrpcStatusCode, strconv.Itoa(statusCode)),
	)
}
