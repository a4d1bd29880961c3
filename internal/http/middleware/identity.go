package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/tasker/internal/errors"
	"github.com/pribylovaa/tasker/internal/pkg/identity"
	logctx "github.com/pribylovaa/tasker/internal/pkg/log"
	"github.com/pribylovaa/tasker/internal/service"
)

// Validator проверяет access-токен и возвращает субъекта.
type Validator interface {
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, error)
}

// RequireIdentity: Identity Guard для маршрутов, которым нужен субъект.
// Токен берётся только из Authorization: Bearer. Отсутствие токена и
// невалидный токен различаются сообщением, но оба дают 401 до хендлера.
func RequireIdentity(v Validator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				logctx.From(r.Context()).Warn("identity_rejected", slog.String("reason", "missing"))
				apierrors.WriteError(w, r, service.ErrAccessTokenMissing)
				return
			}

			sub, err := v.ValidateAccessToken(r.Context(), token)
			if err != nil {
				logctx.From(r.Context()).Warn("identity_rejected", slog.String("reason", service.MessageOf(err)))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := identity.Into(r.Context(), sub)
			ctx = logctx.With(ctx, slog.String("user_id", sub.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")

	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
