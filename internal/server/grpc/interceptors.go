package grpcserver

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// LoggingUnary logs each call. Probes are frequent, so successful calls log
// at debug and failures at warn.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		lvl := zap.DebugLevel
		if code != codes.OK {
			lvl = zap.WarnLevel
		}
		// metadata only, never payloads
		log.Log(lvl, "grpc",
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		)
		return resp, err
	}
}

func recovered(log *zap.Logger, method string, r any) error {
	log.Error("panic",
		zap.Any("reason", r),
		zap.ByteString("stack", debug.Stack()),
		zap.String("method", method),
	)
	return status.Error(codes.Internal, "internal")
}

// RecoverUnary turns handler panics into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(log, info.FullMethod, r)
			}
		}()
		return next(ctx, req)
	}
}

// RecoverStream turns stream handler panics (health Watch) into codes.Internal.
func RecoverStream(log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, next grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(log, info.FullMethod, r)
			}
		}()
		return next(srv, ss)
	}
}
