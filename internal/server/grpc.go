package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/warranty-tracker/internal/common"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "warranty.v1.WarrantyService"

// WarrantyServer is the gRPC surface. Requests and responses are google.protobuf.Struct.
type WarrantyServer interface {
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportProducts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(WarrantyServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WarrantyServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(WarrantyServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is registered by hand; the messages are well-known Struct types.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WarrantyServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetJob", WarrantyServer.GetJob),
		unaryHandler("ListJobs", WarrantyServer.ListJobs),
		unaryHandler("GetDocument", WarrantyServer.GetDocument),
		unaryHandler("GetProduct", WarrantyServer.GetProduct),
		unaryHandler("ListProducts", WarrantyServer.ListProducts),
		unaryHandler("SubmitDocument", WarrantyServer.SubmitDocument),
		unaryHandler("ExportProducts", WarrantyServer.ExportProducts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "warranty/v1/warranty.proto",
}

// GRPCHandler adapts Service to WarrantyServer.
type GRPCHandler struct {
	svc    *Service
	logger *slog.Logger
}

func NewGRPCHandler(svc *Service, logger *slog.Logger) *GRPCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCHandler{svc: svc, logger: logger}
}

func str(in *structpb.Struct, key string) string {
	if v, ok := in.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func (h *GRPCHandler) reply(method string, m map[string]any, err error) (*structpb.Struct, error) {
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) && !common.IsValidation(err) && !errors.Is(err, common.ErrInvalidInput) {
			h.logger.Error("grpc.call.failed", "method", method, "err", err)
		}
		return nil, common.ToGRPCError(err)
	}
	out, err := toStruct(m)
	if err != nil {
		h.logger.Error("grpc.encode.failed", "method", method, "err", err)
		return nil, common.InternalError("internal error")
	}
	return out, nil
}

func (h *GRPCHandler) get(ctx context.Context, in *structpb.Struct, method string,
	fn func(context.Context, uuid.UUID, uuid.UUID) (map[string]any, error)) (*structpb.Struct, error) {
	userID, id, err := parseIDs(str(in, "user_id"), "id", str(in, "id"))
	if err != nil {
		return h.reply(method, nil, err)
	}
	m, err := fn(ctx, userID, id)
	return h.reply(method, m, err)
}

func (h *GRPCHandler) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.get(ctx, in, "GetJob", h.svc.GetJob)
}

func (h *GRPCHandler) GetDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.get(ctx, in, "GetDocument", h.svc.GetDocument)
}

func (h *GRPCHandler) GetProduct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.get(ctx, in, "GetProduct", h.svc.GetProduct)
}

func (h *GRPCHandler) ListJobs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := parseIDs(str(in, "user_id"), "", "")
	if err != nil {
		return h.reply("ListJobs", nil, err)
	}
	limit := int(in.GetFields()["limit"].GetNumberValue())
	m, err := h.svc.ListJobs(ctx, userID, limit)
	return h.reply("ListJobs", m, err)
}

func (h *GRPCHandler) ListProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := parseIDs(str(in, "user_id"), "", "")
	if err != nil {
		return h.reply("ListProducts", nil, err)
	}
	m, err := h.svc.ListProducts(ctx, userID)
	return h.reply("ListProducts", m, err)
}

func (h *GRPCHandler) SubmitDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := parseIDs(str(in, "user_id"), "", "")
	if err != nil {
		return h.reply("SubmitDocument", nil, err)
	}
	m, err := h.svc.SubmitDocument(ctx, userID, str(in, "path"))
	return h.reply("SubmitDocument", m, err)
}

// ExportProducts returns the workbook base64-encoded under "xlsx_base64".
func (h *GRPCHandler) ExportProducts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := parseIDs(str(in, "user_id"), "", "")
	if err != nil {
		return h.reply("ExportProducts", nil, err)
	}
	from, err := parseDate("from_date", str(in, "from_date"))
	if err != nil {
		return h.reply("ExportProducts", nil, err)
	}
	to, err := parseDate("to_date", str(in, "to_date"))
	if err != nil {
		return h.reply("ExportProducts", nil, err)
	}
	data, err := h.svc.ExportProducts(ctx, userID, from, to)
	if err != nil {
		return h.reply("ExportProducts", nil, err)
	}
	return h.reply("ExportProducts", map[string]any{
		"xlsx_base64": base64.StdEncoding.EncodeToString(data),
		"size":        len(data),
	}, nil)
}

// toStruct goes through JSON so typed slices and int64 values become Struct-compatible.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var plain map[string]any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return structpb.NewStruct(plain)
}

// NewGRPCServer registers the warranty service and the health service behind the
// recovery and response-redaction interceptors.
func NewGRPCServer(h WarrantyServer, strict bool, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(
		RecoveryUnaryInterceptor(logger),
		RedactionUnaryInterceptor(strict, logger),
	))
	s := grpc.NewServer(opts...)
	s.RegisterService(&ServiceDesc, h)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}
