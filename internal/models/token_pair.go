package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair: пара токенов, выдаваемая при входе и при обновлении.
//
// Описание:
//   - AccessToken: короткоживущий JWT для доступа к API;
//   - RefreshToken: долгоживущий JWT, действителен только пока его дайджест
//     лежит в хранилище сессий под ключом владельца;
//   - AccessExpiresAt/RefreshExpiresAt: моменты истечения (UTC).
type TokenPair struct {
	UserID           uuid.UUID
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
