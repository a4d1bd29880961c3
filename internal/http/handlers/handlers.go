package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/tasker/internal/config"
	"github.com/pribylovaa/tasker/internal/models"
	"github.com/pribylovaa/tasker/internal/service"
)

// AuthService: операции Auth Lifecycle Manager, нужные хендлерам.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, subject uuid.UUID) error
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, error)
	Profile(ctx context.Context, subject uuid.UUID) (*models.PublicUser, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	Auth   AuthService
	Cookie config.CookieConfig
}

func New(auth AuthService, cookie config.CookieConfig) *Handlers {
	return &Handlers{Auth: auth, Cookie: cookie}
}

// errInvalidBody: тело запроса не разобрано.
var errInvalidBody = &service.Error{Kind: service.KindInvalidArgument, Message: "Invalid request body"}

// writeJSON: единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict декодирует JSON и запрещает неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
