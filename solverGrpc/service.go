package solverGrpc

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName    = "itree.Solver"
	evaluateMethod = "/itree.Solver/Evaluate"
	pingMethod     = "/itree.Solver/Ping"
)

// Field names of the messages
const (
	constraintsField = "constraints"
	queryField       = "query"
	timeoutField     = "timeoutMs"
	validityField    = "validity"
	coreField        = "core"
)

// The server API of the solver service.
//
// Evaluate takes the constraints as a list of expression strings, the query and an optional timeout in milliseconds.
// It answers with the validity and the unsat core as indices into the constraint list.
type SolverServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *empty.Empty) (*empty.Empty, error)
}

// Register the solver service on gs
func RegisterSolverServer(gs grpc.ServiceRegistrar, srv SolverServer) {
	gs.RegisterService(&solverServiceDesc, srv)
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: evaluateMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SolverServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(empty.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: pingMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SolverServer).Ping(ctx, req.(*empty.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var solverServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler:    evaluateHandler,
		},
		{
			MethodName: "Ping",
			Handler:    pingHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "itree/solver.proto",
}
