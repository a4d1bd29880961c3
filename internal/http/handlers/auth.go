package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/tasker/internal/errors"
	"github.com/pribylovaa/tasker/internal/models"
	"github.com/pribylovaa/tasker/internal/pkg/identity"
	"github.com/pribylovaa/tasker/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	user, err := h.Auth.Register(r.Context(), in.Email, in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	pair, err := h.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, models.TokenResponseFrom(pair))
}

// RefreshTokens читает refresh-токен только из cookie.
func (h *Handlers) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	pair, err := h.Auth.Refresh(r.Context(), h.refreshCookie(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, models.TokenResponseFrom(pair))
}

// Logout стоит за Identity Guard, субъект уже в контексте.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sub, ok := identity.From(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrAccessTokenMissing)
		return
	}

	if err := h.Auth.Logout(r.Context(), sub); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var in models.ValidateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody)
		return
	}

	sub, err := h.Auth.ValidateAccessToken(r.Context(), in.Token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ValidateResponse{Valid: true, UserID: sub.String()})
}

// Me: пример потребителя Identity Guard.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := identity.From(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrAccessTokenMissing)
		return
	}

	user, err := h.Auth.Profile(r.Context(), sub)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
