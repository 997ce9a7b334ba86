package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/database"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bookingPackage     = "dotg.booking.v1"
	bookingServiceName = bookingPackage + ".BookingService"
	bookingProtoFile   = "dotg/booking/v1/booking.proto"
)

// BookingServer is the gRPC surface. Messages are google.protobuf.Struct
// values carrying the same JSON shapes as the HTTP API.
type BookingServer interface {
	Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Availability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Quote", Handler: unaryHandler("Quote", BookingServer.Quote)},
		{MethodName: "Availability", Handler: unaryHandler("Availability", BookingServer.Availability)},
		{MethodName: "GetSession", Handler: unaryHandler("GetSession", BookingServer.GetSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: bookingProtoFile,
}

// errBookingDescriptor is set when the booking file descriptor could not be
// added to the global registry that server reflection reads.
var errBookingDescriptor = registerBookingDescriptor()

// bookingFileDescriptor describes the service in proto form. There is no
// .proto source; every method takes and returns google.protobuf.Struct.
func bookingFileDescriptor() *descriptorpb.FileDescriptorProto {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(bookingServiceDesc.Methods))
	for _, m := range bookingServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(".google.protobuf.Struct"),
			OutputType: proto.String(".google.protobuf.Struct"),
		})
	}
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(bookingProtoFile),
		Package:    proto.String(bookingPackage),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("BookingService"),
			Method: methods,
		}},
	}
}

func registerBookingDescriptor() error {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(bookingProtoFile); err == nil {
		return nil
	}
	fd, err := protodesc.NewFile(bookingFileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		return fmt.Errorf("build booking descriptor: %w", err)
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
}

func RegisterBookingServer(s grpc.ServiceRegistrar, srv BookingServer) {
	s.RegisterService(&bookingServiceDesc, srv)
}

func unaryHandler(method string, call func(BookingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + bookingServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BookingService implements BookingServer on top of the application
// services.
type BookingService struct {
	svc Services
}

func NewBookingService(svc Services) *BookingService {
	return &BookingService{svc: svc}
}

func (b *BookingService) Quote(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if b.svc.Pricing == nil {
		return nil, status.Error(codes.Unimplemented, "pricing is not configured")
	}
	var in quoteRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	return toStruct(b.svc.Pricing.Quote(in.Vehicle, in.Service))
}

func (b *BookingService) Availability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if b.svc.Slots == nil {
		return nil, status.Error(codes.Unimplemented, "availability is not configured")
	}
	var in struct {
		Branch string `json:"branch"`
		Date   string `json:"date"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Branch) == "" {
		return nil, status.Error(codes.InvalidArgument, "branch is required")
	}
	if in.Date != "" {
		if _, err := calendar.ParseDate(in.Date); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
		}
	}

	slots, err := b.svc.Slots.Availability(ctx, in.Branch)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "availability: %v", err)
	}
	if in.Date != "" {
		slots = calendar.SlotsForDate(slots, in.Date)
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	return toStruct(map[string]any{"branch": in.Branch, "slots": slots})
}

func (b *BookingService) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if b.svc.Sessions == nil {
		return nil, status.Error(codes.Unimplemented, "sessions are not configured")
	}
	id := strings.TrimSpace(req.GetFields()["sessionId"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "sessionId is required")
	}

	view, err := b.svc.Sessions.Get(ctx, id)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(view)
}

func grpcError(err error) error {
	switch {
	case apperr.IsValidation(err), apperr.IsCompilation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.IsSubmission(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, database.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func fromStruct(in *structpb.Struct, dst any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "encode request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
