// transport/grpc содержит gRPC-сервис Identity для соседних сервисов.
// Здесь выполняется только маппинг данных и ошибок сервиса в gRPC;
// вся проверка токенов находится в пакете service.
//
// Сервис описан вручную (grpc.ServiceDesc) поверх well-known типов
// wrapperspb/emptypb, поэтому отдельный .proto и кодоген не нужны:
//   - Validate(StringValue access_token) -> StringValue user_id; метод публичный;
//   - WhoAmI(Empty) -> StringValue user_id; субъект берётся из Identity Guard
//     (interceptors.IdentityUnary), токен передаётся в metadata authorization.
package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/pribylovaa/tasker/internal/interceptors"
	"github.com/pribylovaa/tasker/internal/pkg/identity"
)

const (
	ServiceName = "tasker.auth.v1.Identity"

	MethodValidate = "/" + ServiceName + "/Validate"
	MethodWhoAmI   = "/" + ServiceName + "/WhoAmI"
)

// PublicMethods: методы, которые Identity Guard пропускает без токена.
var PublicMethods = map[string]bool{
	MethodValidate:                       true,
	healthpb.Health_Check_FullMethodName: true,
}

// Validator: то, что нужно серверу от сервисного слоя.
type Validator interface {
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, error)
}

// IdentityServer отвечает на запросы проверки access-токенов.
type IdentityServer struct {
	validator Validator
}

// NewIdentityServer создаёт gRPC-сервер Identity поверх сервисного слоя.
func NewIdentityServer(v Validator) *IdentityServer {
	return &IdentityServer{validator: v}
}

// Validate проверяет переданный access-токен и возвращает субъекта.
// Невалидный или просроченный токен -> Unauthenticated с сообщением сервиса.
func (s *IdentityServer) Validate(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	sub, err := s.validator.ValidateAccessToken(ctx, req.GetValue())
	if err != nil {
		return nil, interceptors.ToStatus(err)
	}

	return wrapperspb.String(sub.String()), nil
}

// WhoAmI возвращает субъекта, подтверждённого guard'ом.
func (s *IdentityServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	sub, ok := identity.From(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "Access token is missing")
	}

	return wrapperspb.String(sub.String()), nil
}

// IdentityServiceServer: серверный контракт сервиса.
type IdentityServiceServer interface {
	Validate(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	WhoAmI(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterIdentityServer регистрирует реализацию на gRPC-сервере.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&identityServiceDesc, srv)
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServiceServer).Validate(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodValidate}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServiceServer).Validate(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServiceServer).WhoAmI(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodWhoAmI}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServiceServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tasker/auth/v1/identity.proto",
}

// IdentityClient: клиент сервиса Identity для соседних сервисов.
type IdentityClient struct {
	cc grpc.ClientConnInterface
}

// NewIdentityClient создаёт клиента поверх готового соединения.
func NewIdentityClient(cc grpc.ClientConnInterface) *IdentityClient {
	return &IdentityClient{cc: cc}
}

// Validate вызывает Identity/Validate.
func (c *IdentityClient) Validate(ctx context.Context, token string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodValidate, wrapperspb.String(token), out, opts...); err != nil {
		return "", err
	}

	return out.GetValue(), nil
}

// WhoAmI вызывает Identity/WhoAmI; токен должен лежать в outgoing metadata.
func (c *IdentityClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, MethodWhoAmI, &emptypb.Empty{}, out, opts...); err != nil {
		return "", err
	}

	return out.GetValue(), nil
}

var _ IdentityServiceServer = (*IdentityServer)(nil)
