package interceptors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/pribylovaa/tasker/internal/pkg/identity"
	logctx "github.com/pribylovaa/tasker/internal/pkg/log"
	"github.com/pribylovaa/tasker/internal/service"
)

const bearerPrefix = "bearer "

// Validator проверяет access-токен и возвращает субъекта.
type Validator interface {
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, error)
}

// IdentityUnary: Identity Guard для gRPC. Методы из publicMethods
// пропускаются без токена; для остальных отсутствие bearer-токена в
// metadata "authorization" и невалидный токен дают Unauthenticated до хендлера.
func IdentityUnary(v Validator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token := extractBearer(ctx)
		if token == "" {
			logctx.From(ctx).Warn("identity_rejected", slog.String("reason", "missing"))
			return nil, ToStatus(service.ErrAccessTokenMissing)
		}

		sub, err := v.ValidateAccessToken(ctx, token)
		if err != nil {
			logctx.From(ctx).Warn("identity_rejected", slog.String("reason", service.MessageOf(err)))
			return nil, ToStatus(err)
		}

		ctx = identity.Into(ctx, sub)
		ctx = logctx.With(ctx, slog.String("user_id", sub.String()))

		return handler(ctx, req)
	}
}

// extractBearer возвращает токен из metadata или "".
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}

	v := strings.TrimSpace(vals[0])
	if len(v) <= len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(v[len(bearerPrefix):])
}
