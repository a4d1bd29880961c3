package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/tasker/internal/hasher"
	"github.com/pribylovaa/tasker/internal/models"
	logctx "github.com/pribylovaa/tasker/internal/pkg/log"
	"github.com/pribylovaa/tasker/internal/pkg/redact"
	"github.com/pribylovaa/tasker/internal/storage"
	"github.com/pribylovaa/tasker/internal/tokens"
)

// Register регистрирует нового пользователя. Хэш пароля наружу не возвращается.
func (s *Service) Register(ctx context.Context, email, username, password string) (_ *models.PublicUser, err error) {
	const op = "service.auth.Register"
	defer func(start time.Time) { s.observe("register", start, err) }(s.now())

	normEmail, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUsernameRequired)
	}
	if password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordRequired)
	}

	_, err = s.users.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, userExists(normEmail))
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, hasher.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		}

		return nil, fmt.Errorf("%s: %w", op, internalFailure(err))
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, userExists(normEmail))
		}

		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}

	logctx.From(ctx).Info("user_registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(normEmail)),
	)

	return user.Public(), nil
}

// Login выполняет вход по email+пароль и открывает сессию субъекта,
// вытесняя предыдущую. Ровно одна запись в хранилище сессий.
func (s *Service) Login(ctx context.Context, email, password string) (_ *models.TokenPair, err error) {
	const op = "service.auth.Login"
	defer func(start time.Time) { s.observe("login", start, err) }(s.now())

	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailRequired)
	}
	if password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordRequired)
	}

	user, err := s.users.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, userNotFoundByEmail(normEmail))
		}

		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		logctx.From(ctx).Warn("login_rejected",
			slog.String("email", redact.Email(normEmail)),
			slog.String("reason", "invalid_credentials"),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, digest, err := s.issuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sessions.Put(ctx, user.ID.String(), digest, s.cfg.RefreshTokenTTL); err != nil {
		logctx.From(ctx).Error("session_store_unavailable", slog.String("op", op), slog.Any("err", err))
		return nil, fmt.Errorf("%s: %w", op, sessionFailure(err))
	}

	logctx.From(ctx).Info("login_succeeded", slog.String("user_id", user.ID.String()))

	return pair, nil
}

// Refresh проверяет refresh-токен и выдаёт новую пару (ротация).
// Предъявленный токен после успеха больше не принимается; из двух
// конкурентных refresh по одному токену побеждает ровно один.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *models.TokenPair, err error) {
	const op = "service.auth.Refresh"
	defer func(start time.Time) { s.observe("refresh", start, err) }(s.now())

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenMissing)
	}

	payload, err := s.codec.Verify(refreshToken, tokens.KindRefresh)
	if err != nil {
		reject := ErrRefreshTokenInvalid
		if errors.Is(err, tokens.ErrExpired) {
			reject = ErrRefreshTokenExpired
		}
		logctx.From(ctx).Warn("refresh_rejected", slog.String("reason", reject.Message))

		return nil, fmt.Errorf("%s: %w", op, reject)
	}

	subject := payload.Subject.String()

	ok, err := s.sessions.Exists(ctx, subject)
	if err != nil {
		logctx.From(ctx).Error("session_store_unavailable", slog.String("op", op), slog.Any("err", err))
		return nil, fmt.Errorf("%s: %w", op, sessionFailure(err))
	}
	if !ok {
		logctx.From(ctx).Warn("refresh_rejected",
			slog.String("user_id", subject),
			slog.String("reason", ErrRefreshTokenNotExist.Message),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotExist)
	}

	pair, digest, err := s.issuePair(payload.Subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := s.sessions.Swap(ctx, subject, Digest(refreshToken), digest, s.cfg.RefreshTokenTTL)
	if err != nil {
		logctx.From(ctx).Error("session_store_unavailable", slog.String("op", op), slog.Any("err", err))
		return nil, fmt.Errorf("%s: %w", op, sessionFailure(err))
	}
	if !swapped {
		// Токен уже ротирован, отозван или проиграл гонку: снаружи неотличимо.
		logctx.From(ctx).Warn("refresh_rejected",
			slog.String("user_id", subject),
			slog.String("reason", "stale_token"),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotExist)
	}

	logctx.From(ctx).Info("tokens_refreshed", slog.String("user_id", subject))

	return pair, nil
}

// Logout удаляет сессию субъекта безусловно; повторный вызов не ошибка.
// Уже выданные access-токены живут до своего exp.
func (s *Service) Logout(ctx context.Context, subject uuid.UUID) (err error) {
	const op = "service.auth.Logout"
	defer func(start time.Time) { s.observe("logout", start, err) }(s.now())

	if subject == uuid.Nil {
		return fmt.Errorf("%s: %w", op, ErrSubjectRequired)
	}

	if err := s.sessions.Remove(ctx, subject.String()); err != nil {
		logctx.From(ctx).Error("session_store_unavailable", slog.String("op", op), slog.Any("err", err))
		return fmt.Errorf("%s: %w", op, sessionFailure(err))
	}

	logctx.From(ctx).Info("logout_succeeded", slog.String("user_id", subject.String()))

	return nil
}

// ValidateAccessToken проверяет access-токен только кодеком, без обращения
// к хранилищу сессий.
func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (_ uuid.UUID, err error) {
	const op = "service.auth.ValidateAccessToken"
	defer func(start time.Time) { s.observe("validate", start, err) }(s.now())

	if strings.TrimSpace(accessToken) == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccessTokenMissing)
	}

	payload, err := s.codec.Verify(accessToken, tokens.KindAccess)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccessTokenExpired)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccessTokenInvalid)
	}

	return payload.Subject, nil
}

// Profile возвращает публичные данные субъекта.
func (s *Service) Profile(ctx context.Context, subject uuid.UUID) (_ *models.PublicUser, err error) {
	const op = "service.auth.Profile"
	defer func(start time.Time) { s.observe("profile", start, err) }(s.now())

	user, err := s.users.UserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, userNotFoundByID(subject.String()))
		}

		return nil, fmt.Errorf("%s: %w", op, storageFailure(err))
	}

	return user.Public(), nil
}

// Digest: значение, под которым refresh-токен лежит в хранилище сессий
// (SHA-256, base64url без паддинга). Сам токен не хранится.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// issuePair выпускает пару токенов и возвращает дайджест refresh-токена.
func (s *Service) issuePair(subject uuid.UUID) (*models.TokenPair, string, error) {
	access, ap, err := s.codec.Issue(subject, tokens.KindAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, "", internalFailure(err)
	}

	refresh, rp, err := s.codec.Issue(subject, tokens.KindRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, "", internalFailure(err)
	}

	return &models.TokenPair{
		UserID:           subject,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ap.ExpiresAt,
		RefreshExpiresAt: rp.ExpiresAt,
	}, Digest(refresh), nil
}

// normalizeEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrEmailRequired
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrEmailInvalid
	}

	return strings.ToLower(email), nil
}
