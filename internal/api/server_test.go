package api

import (
	"context"
	"net"
	"testing"

	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

func startBufServer(t *testing.T, cfg config.APIConfig, svc Services) *grpc.ClientConn {
	t.Helper()

	srv, err := newGRPCServer(&cfg, NewBookingService(svc), nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.server.Serve(lis) }()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGRPC_Health(t *testing.T) {
	conn := startBufServer(t, config.APIConfig{}, Services{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: bookingServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPC_Quote(t *testing.T) {
	engine := pricing.NewEngine(pricing.DefaultTables())
	conn := startBufServer(t, config.APIConfig{}, Services{Pricing: engine})

	in := mustStruct(t, map[string]any{
		"vehicle": map[string]any{"vehicleSize": "Sedan"},
		"service": map[string]any{"package": "exterior", "addons": []any{"paint"}},
	})
	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), "/"+bookingServiceName+"/Quote", in, out)
	require.NoError(t, err)
	assert.Equal(t, "199", out.GetFields()["calculatedPrice"].GetStringValue())
}

func TestGRPC_Availability(t *testing.T) {
	conn := startBufServer(t, config.APIConfig{}, Services{Slots: &fakeSlots{}})

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), "/"+bookingServiceName+"/Availability",
		mustStruct(t, map[string]any{"branch": "lwr", "date": "2024-03-06"}), out)
	require.NoError(t, err)
	assert.Len(t, out.GetFields()["slots"].GetListValue().GetValues(), 1)

	err = conn.Invoke(context.Background(), "/"+bookingServiceName+"/Availability",
		mustStruct(t, map[string]any{}), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPC_GetSession(t *testing.T) {
	sessions := newFakeSessions()
	_, _ = sessions.Create(context.Background(), "s-1")
	conn := startBufServer(t, config.APIConfig{}, Services{Sessions: sessions})

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), "/"+bookingServiceName+"/GetSession",
		mustStruct(t, map[string]any{"sessionId": "s-1"}), out)
	require.NoError(t, err)
	assert.Equal(t, "s-1", out.GetFields()["sessionId"].GetStringValue())

	err = conn.Invoke(context.Background(), "/"+bookingServiceName+"/GetSession",
		mustStruct(t, map[string]any{"sessionId": "gone"}), out)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_Unconfigured(t *testing.T) {
	conn := startBufServer(t, config.APIConfig{}, Services{})

	out := new(structpb.Struct)
	err := conn.Invoke(context.Background(), "/"+bookingServiceName+"/Quote", mustStruct(t, map[string]any{}), out)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestGRPC_AuthEnforced(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{{Key: "k1", Extra: "e1", Permissions: []string{"read:availability"}}},
		},
	}
	conn := startBufServer(t, cfg, Services{Slots: &fakeSlots{}, Pricing: pricing.NewEngine(pricing.DefaultTables())})
	in := mustStruct(t, map[string]any{"branch": "lwr"})
	out := new(structpb.Struct)

	err := conn.Invoke(context.Background(), "/"+bookingServiceName+"/Availability", in, out)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "k1", "x-api-extra", "e1")
	err = conn.Invoke(ctx, "/"+bookingServiceName+"/Availability", in, out)
	assert.NoError(t, err)

	err = conn.Invoke(ctx, "/"+bookingServiceName+"/Quote", mustStruct(t, map[string]any{}), out)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestGRPC_ReflectionResolvesBookingService(t *testing.T) {
	cfg := config.APIConfig{GRPC: config.APIGRPCConfig{Reflection: true}}
	conn := startBufServer(t, cfg, Services{})

	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	require.NoError(t, err)

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))
	resp, err := stream.Recv()
	require.NoError(t, err)
	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	assert.Contains(t, names, bookingServiceName)

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: bookingServiceName},
	}))
	resp, err = stream.Recv()
	require.NoError(t, err)
	require.Nil(t, resp.GetErrorResponse())
	files := resp.GetFileDescriptorResponse().GetFileDescriptorProto()
	require.NotEmpty(t, files)

	var fd descriptorpb.FileDescriptorProto
	require.NoError(t, proto.Unmarshal(files[0], &fd))
	assert.Equal(t, bookingProtoFile, fd.GetName())
	require.Len(t, fd.GetService(), 1)
	var methods []string
	for _, m := range fd.GetService()[0].GetMethod() {
		methods = append(methods, m.GetName())
		assert.Equal(t, ".google.protobuf.Struct", m.GetInputType())
	}
	assert.ElementsMatch(t, []string{"Quote", "Availability", "GetSession"}, methods)
}

func TestRegisterBookingDescriptorIsIdempotent(t *testing.T) {
	require.NoError(t, errBookingDescriptor)
	assert.NoError(t, registerBookingDescriptor())
}

func TestBuildTLSConfig(t *testing.T) {
	_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = buildTLSConfig(config.APITLSConfig{Enabled: true, CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}
