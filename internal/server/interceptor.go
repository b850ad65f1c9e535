package server

import (
	"context"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
	"github.com/joseph-ayodele/warranty-tracker/internal/redact"
)

// binaryKeys hold base64 payloads; masking a digit run inside one corrupts the file.
var binaryKeys = []string{"xlsx_base64"}

// RedactionUnaryInterceptor rewrites Struct responses through redact.Response and
// masks status messages. Other response types pass through.
func RedactionUnaryInterceptor(strict bool, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			if st, ok := status.FromError(err); ok {
				return nil, status.Error(st.Code(), redact.Text(st.Message(), strict))
			}
			return nil, err
		}
		s, ok := resp.(*structpb.Struct)
		if !ok || s == nil {
			return resp, nil
		}
		out, convErr := structpb.NewStruct(redact.Response(s.AsMap(), strict, binaryKeys...))
		if convErr != nil {
			logger.Error("grpc.redact.failed", "method", info.FullMethod, "err", convErr)
			return nil, common.InternalError("internal error")
		}
		return out, nil
	}
}

// RecoveryUnaryInterceptor turns a handler panic into codes.Internal.
func RecoveryUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc.panic", "method", info.FullMethod, "stack", string(debug.Stack()))
				resp, err = nil, common.InternalError("internal error")
			}
		}()
		return handler(ctx, req)
	}
}
