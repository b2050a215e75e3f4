package tfserving

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/circuitbreaker"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/grpcclient"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/middleware"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
)

// Conn is an open connection to a model server.
type Conn interface {
	grpc.ClientConnInterface
	Close() error
}

// Dialer opens a Conn to target, a "host:port" address.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

type DialerFunc func(ctx context.Context, target string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, target string) (Conn, error) {
	return f(ctx, target)
}

type grpcDialer struct {
	plainText           bool
	connectTimeout      time.Duration
	loadBalancingPolicy string
}

func (d grpcDialer) Dial(ctx context.Context, target string) (Conn, error) {
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return nil, err
	}
	conn, err := grpcclient.NewConn(ctx, &grpcclient.Config{
		Host:                host,
		Port:                port,
		ConnectTimeout:      d.connectTimeout,
		LoadBalancingPolicy: d.loadBalancingPolicy,
		PlainText:           d.plainText,
		DialOptions:         []grpc.DialOption{grpc.WithChainUnaryInterceptor(middleware.GRPCClientRecovery, middleware.GRPCClientLogger)},
	}, metric.TagValueExternalServiceTfServing)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Builder collects the settings of a client. Hostname and Port are required. A Builder may be
// reused, including after a failed Build.
type Builder struct {
	hostname            string
	port                uint16
	portSet             bool
	signatureName       string
	deadline            time.Duration
	connectTimeout      time.Duration
	plainText           bool
	loadBalancingPolicy string
	callerId            string
	circuitBreaker      *circuitbreaker.Config
	dialer              Dialer
}

func NewBuilder() *Builder {
	return &Builder{plainText: DefaultPlainText}
}

func (b *Builder) Hostname(hostname string) *Builder {
	b.hostname = hostname
	return b
}

func (b *Builder) Port(port uint16) *Builder {
	b.port = port
	b.portSet = true
	return b
}

// SignatureName sets the signature sent with every request. It defaults to "serving_default".
func (b *Builder) SignatureName(name string) *Builder {
	b.signatureName = name
	return b
}

// Deadline bounds every call made by the client. Zero means no deadline beyond the caller's context.
func (b *Builder) Deadline(d time.Duration) *Builder {
	b.deadline = d
	return b
}

// ConnectTimeout makes Build wait up to d for a ready connection. Zero connects lazily.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.connectTimeout = d
	return b
}

// PlainText selects an unencrypted connection. It is the default.
func (b *Builder) PlainText(plainText bool) *Builder {
	b.plainText = plainText
	return b
}

func (b *Builder) LoadBalancingPolicy(policy string) *Builder {
	b.loadBalancingPolicy = policy
	return b
}

// CallerID is sent as request metadata on every call.
func (b *Builder) CallerID(callerId string) *Builder {
	b.callerId = callerId
	return b
}

func (b *Builder) CircuitBreaker(config *circuitbreaker.Config) *Builder {
	b.circuitBreaker = config
	return b
}

// Dialer replaces the default gRPC dialer.
func (b *Builder) Dialer(d Dialer) *Builder {
	b.dialer = d
	return b
}

// Build validates the settings and connects. Missing settings yield a ConfigError without any
// network activity; a failed connection yields a ConnectionError.
func (b *Builder) Build(ctx context.Context) (*ClientV1, error) {
	if err := validateEndpoint(b.hostname, b.portSet); err != nil {
		return nil, err
	}
	if err := b.circuitBreaker.Validate(); err != nil {
		return nil, api.NewConfigError("circuit breaker config is invalid", err)
	}

	signatureName := b.signatureName
	if signatureName == "" {
		signatureName = DefaultSignatureName
	}
	target := net.JoinHostPort(b.hostname, strconv.Itoa(int(b.port)))
	endpoint := "http://" + target

	dialer := b.dialer
	if dialer == nil {
		dialer = grpcDialer{
			plainText:           b.plainText,
			connectTimeout:      b.connectTimeout,
			loadBalancingPolicy: b.loadBalancingPolicy,
		}
	}
	conn, err := dialer.Dial(ctx, target)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("failed to connect to TensorFlow Serving")
		return nil, api.NewConnectionError("failed to connect to "+endpoint, err)
	}
	log.Debug().Str("endpoint", endpoint).Str("signature_name", signatureName).Msg("TensorFlow Serving client connected")

	return newClientV1(conn, clientOptions{
		signatureName:  signatureName,
		endpoint:       endpoint,
		deadline:       b.deadline,
		callerId:       b.callerId,
		circuitBreaker: circuitbreaker.New(b.circuitBreaker),
	}), nil
}

func builderFromConfig(conf *ClientConfig) *Builder {
	b := NewBuilder().
		Hostname(conf.Host).
		SignatureName(conf.SignatureName).
		Deadline(time.Duration(conf.DeadlineMS) * time.Millisecond).
		ConnectTimeout(time.Duration(conf.ConnectTimeoutMS) * time.Millisecond).
		PlainText(conf.PlainText).
		LoadBalancingPolicy(conf.LoadBalancingPolicy).
		CallerID(conf.CallerId).
		CircuitBreaker(conf.CircuitBreaker)
	if conf.Port != 0 {
		b.Port(conf.Port)
	}
	return b
}

// NewClientFromConfig validates conf and builds a connected client from it.
func NewClientFromConfig(ctx context.Context, conf *ClientConfig) (*ClientV1, error) {
	if valid, err := validConfigs(conf); !valid {
		return nil, err
	}
	return builderFromConfig(conf).Build(ctx)
}
