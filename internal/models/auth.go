package models

import "time"

// DTO HTTP-слоя auth.

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ValidateRequest struct {
	Token string `json:"token"`
}

// TokenResponse: тело ответа login/refresh. Refresh-токен в тело не попадает,
// он уходит только в HttpOnly cookie.
type TokenResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// TokenResponseFrom отдаёт публичную часть пары.
func TokenResponseFrom(p *TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:     p.AccessToken,
		AccessExpiresAt: p.AccessExpiresAt,
	}
}
