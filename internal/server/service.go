package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/vcf"
)

const CardServiceName = "cardscan.v1.CardService"

// CardServiceServer is the server API for cardscan.v1.CardService.
type CardServiceServer interface {
	ExtractCard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SerializeVCF(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// ImageExtractor is the part of the extractor the gRPC API needs.
type ImageExtractor interface {
	Extract(ctx context.Context, path string) (extract.ContactRecord, error)
	ExtractBytes(ctx context.Context, image []byte, mimeType string) (extract.ContactRecord, error)
}

// CardService exposes extraction and vCard serialization without storage.
type CardService struct {
	extractor ImageExtractor
	tmpDir    string
	logger    *slog.Logger
}

func NewCardService(extractor ImageExtractor, tmpDir string, logger *slog.Logger) *CardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardService{extractor: extractor, tmpDir: tmpDir, logger: logger}
}

var _ CardServiceServer = (*CardService)(nil)

// ExtractCard expects {image_base64, filename} and returns the ContactRecord.
// A card nothing could be read from still returns the sentinel record.
func (s *CardService) ExtractCard(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	raw := strings.TrimSpace(fields["image_base64"].GetStringValue())
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "image_base64 is required")
	}
	if i := strings.Index(raw, ";base64,"); i >= 0 {
		raw = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "image_base64 is not valid base64")
	}
	ext := filepath.Ext(fields["filename"].GetStringValue())
	if ext != "" && !constants.IsAllowedExt(ext) {
		return nil, status.Errorf(codes.InvalidArgument, "unsupported image type %q", ext)
	}

	var rec extract.ContactRecord
	if constants.IsHEICExt(ext) {
		rec, err = s.extractViaFile(ctx, data, ext)
	} else {
		rec, err = s.extractor.ExtractBytes(ctx, data, constants.MimeForExt(ext))
	}
	if err != nil {
		s.logger.Error("grpc.extract.failed", "error", err)
		if errors.Is(err, extract.ErrFatalBackend) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, common.GRPCStatus(err)
	}
	return recordToStruct(rec)
}

// extractViaFile spills data to disk so the extractor's preparer can convert it.
func (s *CardService) extractViaFile(ctx context.Context, data []byte, ext string) (extract.ContactRecord, error) {
	tmp, err := os.CreateTemp(s.tmpDir, "card-*."+constants.NormalizeExt(ext))
	if err != nil {
		return extract.ContactRecord{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return extract.ContactRecord{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return extract.ContactRecord{}, err
	}
	return s.extractor.Extract(ctx, tmp.Name())
}

// SerializeVCF expects {contacts: [{name, company, phones, email, address, note}]}.
func (s *CardService) SerializeVCF(_ context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	list := req.GetFields()["contacts"].GetListValue().GetValues()
	in := make([]vcf.Contact, 0, len(list))
	for i, v := range list {
		st := v.GetStructValue()
		if st == nil {
			return nil, status.Errorf(codes.InvalidArgument, "contacts[%d] must be an object", i)
		}
		in = append(in, contactFromStruct(st))
	}
	return wrapperspb.String(vcf.Serialize(in)), nil
}

func contactFromStruct(st *structpb.Struct) vcf.Contact {
	f := st.GetFields()
	c := vcf.Contact{
		Name:    f["name"].GetStringValue(),
		Company: f["company"].GetStringValue(),
		Email:   f["email"].GetStringValue(),
		Address: f["address"].GetStringValue(),
		Note:    f["note"].GetStringValue(),
	}
	for _, p := range f["phones"].GetListValue().GetValues() {
		if s := p.GetStringValue(); s != "" {
			c.Phones = append(c.Phones, s)
		}
	}
	return c
}

func recordToStruct(rec extract.ContactRecord) (*structpb.Struct, error) {
	phones := make([]any, 0, len(rec.Phones))
	for _, p := range rec.Phones {
		phones = append(phones, p)
	}
	out, err := structpb.NewStruct(map[string]any{
		"company": rec.Company,
		"name":    rec.PersonName,
		"phones":  phones,
		"email":   rec.Email,
		"website": rec.Website,
		"address": rec.Address,
		"rawText": rec.RawText,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func _CardService_ExtractCard_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CardServiceServer).ExtractCard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CardServiceName + "/ExtractCard"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CardServiceServer).ExtractCard(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _CardService_SerializeVCF_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CardServiceServer).SerializeVCF(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CardServiceName + "/SerializeVCF"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CardServiceServer).SerializeVCF(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// CardServiceDesc describes cardscan.v1.CardService. The messages are the
// well-known Struct and StringValue types, so no generated code is needed.
var CardServiceDesc = grpc.ServiceDesc{
	ServiceName: CardServiceName,
	HandlerType: (*CardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractCard", Handler: _CardService_ExtractCard_Handler},
		{MethodName: "SerializeVCF", Handler: _CardService_SerializeVCF_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cardscan/v1/card.proto",
}

// NewGRPCServer builds a gRPC server with CardService, health and reflection.
func NewGRPCServer(card CardServiceServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(logger)))
	srv.RegisterService(&CardServiceDesc, card)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(CardServiceName, healthpb.HealthCheckResponse_SERVING)

	// reflection for grpcurl
	reflection.Register(srv)
	return srv, hs
}

// ServeGRPC serves until ctx ends, then stops gracefully.
func ServeGRPC(ctx context.Context, srv *grpc.Server, hs *health.Server, addr string, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("grpc server listening", "address", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("grpc server shutting down")
	if hs != nil {
		hs.Shutdown()
	}
	srv.GracefulStop()
	return nil
}

func logUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
