package server

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/internal/telemetry"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
)

// unaryInterceptor tags each call with a request id and a server span,
// records metrics, logs completion and turns handler panics into
// codes.Internal.
func unaryInterceptor(m metrics.RPCMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		requestID := uuid.NewString()

		ctx, span := telemetry.StartSpan(ctx, info.FullMethod,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(telemetry.RPCMethod(info.FullMethod), telemetry.RequestID(requestID)),
		)
		defer span.End()

		lc := logger.NewLogContext(requestID, info.FullMethod).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
		ctx = logger.WithContext(ctx, lc)

		resp, err = callHandler(ctx, req, handler)

		var perr *logger.PanicError
		if errors.As(err, &perr) {
			resp, err = nil, status.Error(codes.Internal, "handler panicked: "+perr.Error())
		}

		code := status.Code(err)
		if m != nil {
			m.ObserveRequest(info.FullMethod, code.String(), time.Since(start))
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
			logger.DebugCtx(ctx, "rpc failed", logger.KeyCode, code.String(), logger.KeyError, err.Error(), logger.KeyDurationMs, lc.DurationMs())
			return resp, err
		}
		logger.DebugCtx(ctx, "rpc completed", logger.KeyCode, code.String(), logger.KeyDurationMs, lc.DurationMs())
		return resp, nil
	}
}

func callHandler(ctx context.Context, req any, handler grpc.UnaryHandler) (resp any, err error) {
	defer logger.RecoverToError(&err)
	return handler(ctx, req)
}
