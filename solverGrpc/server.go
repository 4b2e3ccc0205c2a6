package solverGrpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"itree/expr"
	"itree/solver"
)

// Serves solver queries over gRPC.
//
// Solvers are not safe for concurrent use, so every request is decided by a fresh solver created by the factory.
type Server struct {
	newSolver func() solver.Solver
	logger    *slog.Logger
}

func NewServer(newSolver func() solver.Solver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		newSolver: newSolver,
		logger:    logger,
	}
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	constraints := solver.Set{}
	for _, v := range fields[constraintsField].GetListValue().GetValues() {
		c, err := expr.Parse(v.GetStringValue())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "constraint: %v", err)
		}
		constraints = append(constraints, c)
	}
	query, err := expr.Parse(fields[queryField].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "query: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	slv := s.newSolver()
	timeout := time.Duration(fields[timeoutField].GetNumberValue()) * time.Millisecond
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	slv.SetTimeout(timeout)
	v, err := slv.Evaluate(constraints, query)
	if errors.Is(err, solver.ErrTimeout) {
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	} else if err != nil {
		s.logger.Debug("remote query failed", slog.String("query", query.String()), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, err.Error())
	}

	core := []interface{}{}
	if v == solver.True {
		core = coreIndices(constraints, slv.UnsatCore())
	}
	return structpb.NewStruct(map[string]interface{}{
		validityField: v.String(),
		coreField:     core,
	})
}

func (s *Server) Ping(_ context.Context, _ *empty.Empty) (*empty.Empty, error) {
	return &empty.Empty{}, nil
}

// Position of every core constraint in the request. A constraint occurring twice is reported at its first position.
func coreIndices(constraints []expr.Expr, core []expr.Expr) []interface{} {
	indices := make([]interface{}, 0, len(core))
	for _, c := range core {
		for i, other := range constraints {
			if expr.Equal(c, other) {
				indices = append(indices, float64(i))
				break
			}
		}
	}
	return indices
}
