package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/order-alert/internal/config"
	domain "github.com/oshokin/order-alert/internal/domain/alert"
)

// Client sends commands to one of the Execute services.
type Client struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn
	// service is the target service name, used for health checks.
	service string
	// method is the full Execute method name of the target service.
	method string

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// dialOptions are appended to the defaults.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions adds gRPC dial options, e.g. a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// ErrNotServing is returned by Healthy when the service reports it is not serving.
	ErrNotServing = errors.New("service is not serving")
)

// DialMonitor connects to a MonitorService.
func DialMonitor(ctx context.Context, address string, opts ...Option) (*Client, error) {
	return dial(ctx, address, MonitorServiceName, MonitorExecuteMethod, opts...)
}

// DialAudio connects to an AudioService.
func DialAudio(ctx context.Context, address string, opts ...Option) (*Client, error) {
	return dial(ctx, address, AudioServiceName, AudioExecuteMethod, opts...)
}

// dial creates a lazily connecting client. The transport is insecure;
// both services listen on loopback by default.
func dial(_ context.Context, address, service, method string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		service:     service,
		method:      method,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	client.conn = conn

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Send executes req remotely and returns the acknowledgment.
// A failed command is a response with Success false, not an error.
func (c *Client) Send(ctx context.Context, req domain.Request) (domain.Response, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, c.method, EncodeRequest(req), out); err != nil {
		return domain.Response{}, fmt.Errorf("execute %s: %w", req.Action, err)
	}

	resp, err := DecodeResponse(out)
	if err != nil {
		return domain.Response{}, fmt.Errorf("decode %s response: %w", req.Action, err)
	}

	return resp, nil
}

// Healthy asks the standard gRPC health service whether the target service is serving.
func (c *Client) Healthy(ctx context.Context) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		return fmt.Errorf("health check %s: %w", c.service, err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s is %s", ErrNotServing, c.service, resp.GetStatus())
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
