package solverGrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"itree/expr"
	"itree/solver"
)

// A solver.Solver deciding queries on a remote solver service.
//
// The timeout is sent with every query and used as the deadline of the call.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	core    []expr.Expr
}

// Connect to the solver service at target
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("solverGrpc: dial %v: %w", target, err)
	}
	return NewClient(conn), nil
}

// Use an existing connection. Closing the client closes the connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) UnsatCore() []expr.Expr {
	return c.core
}

func (c *Client) Evaluate(cs solver.Constraints, query expr.Expr) (solver.Validity, error) {
	c.core = nil
	constraints := cs.Constraints()

	texts := make([]interface{}, len(constraints))
	for i, con := range constraints {
		texts[i] = con.String()
	}
	req, err := structpb.NewStruct(map[string]interface{}{
		constraintsField: texts,
		queryField:       query.String(),
		timeoutField:     float64(c.timeout.Milliseconds()),
	})
	if err != nil {
		return solver.Unknown, fmt.Errorf("solverGrpc: encode request: %w", err)
	}

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, evaluateMethod, req, resp); err != nil {
		return solver.Unknown, translate(err)
	}

	fields := resp.GetFields()
	v, err := parseValidity(fields[validityField].GetStringValue())
	if err != nil {
		return solver.Unknown, err
	}
	if v == solver.True {
		c.core = make([]expr.Expr, 0, len(constraints))
	}
	for _, idx := range fields[coreField].GetListValue().GetValues() {
		i := int(idx.GetNumberValue())
		if i < 0 || i >= len(constraints) {
			c.core = nil
			return solver.Unknown, fmt.Errorf("%w: core index %v out of range", solver.ErrUndecided, i)
		}
		c.core = append(c.core, constraints[i])
	}
	return v, nil
}

// Check that the service is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.conn.Invoke(ctx, pingMethod, &empty.Empty{}, &empty.Empty{}); err != nil {
		return translate(err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func parseValidity(s string) (solver.Validity, error) {
	for _, v := range []solver.Validity{solver.True, solver.False, solver.Unknown} {
		if v.String() == s {
			return v, nil
		}
	}
	return solver.Unknown, fmt.Errorf("%w: unexpected validity %q", solver.ErrUndecided, s)
}

// Map call failures onto the solver errors
func translate(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", solver.ErrTimeout, err)
	case codes.Unavailable, codes.Canceled:
		return fmt.Errorf("%w: %v", solver.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", solver.ErrUndecided, err)
	}
}
