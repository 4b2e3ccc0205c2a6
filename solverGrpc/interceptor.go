package solverGrpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Create a UnaryClientInterceptor that logs every call to the solver service at debug level, with its duration and status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		logger.Debug("solver call",
			slog.String("method", method),
			slog.String("target", cc.Target()),
			slog.Duration("duration", time.Since(start)),
			slog.String("code", status.Code(err).String()),
		)
		return err
	}
}
