package codec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/smartkyc/internal/gate"
)

// DefaultTimeout bounds a single Analyze call.
const DefaultTimeout = 10 * time.Second

// ErrMalformedResponse is returned when the service answers without all four metrics.
var ErrMalformedResponse = errors.New("malformed analysis response")

// #region client-struct
// Client calls a remote FrameAnalysis service. It implements analysis.Analyzer.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	timeout time.Duration
}

// #endregion client-struct

// #region constructor
// NewClient connects to the analysis service at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn, timeout: DefaultTimeout}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// The caller keeps ownership of cc; Close is a no-op.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, timeout: DefaultTimeout}
}

// SetTimeout changes the per-call timeout. Zero disables it.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns one.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region analyze
// Analyze sends frame to the service and returns the validated metrics.
func (c *Client) Analyze(ctx context.Context, frame []byte) (gate.Metrics, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeMethod, wrapperspb.Bytes(frame), out); err != nil {
		return gate.Metrics{}, fmt.Errorf("analyze rpc: %w", err)
	}

	m, err := metricsFromStruct(out)
	if err != nil {
		return gate.Metrics{}, err
	}
	if err := m.Validate(); err != nil {
		return gate.Metrics{}, fmt.Errorf("analyze rpc: %w", err)
	}
	return m, nil
}

// #endregion analyze

// #region decode
func metricsFromStruct(s *structpb.Struct) (gate.Metrics, error) {
	var m gate.Metrics
	fields := []struct {
		name string
		dst  *float64
	}{
		{"blur", &m.Blur},
		{"glare", &m.Glare},
		{"shadow", &m.Shadow},
		{"coverage", &m.Coverage},
	}
	for _, f := range fields {
		v, ok := s.GetFields()[f.name]
		if !ok {
			return gate.Metrics{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, f.name)
		}
		num, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return gate.Metrics{}, fmt.Errorf("%w: %s is not a number", ErrMalformedResponse, f.name)
		}
		*f.dst = num.NumberValue
	}
	return m, nil
}

// #endregion decode
