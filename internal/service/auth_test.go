package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/tasker/internal/cache"
	"github.com/pribylovaa/tasker/internal/config"
	"github.com/pribylovaa/tasker/internal/hasher"
	"github.com/pribylovaa/tasker/internal/models"
	"github.com/pribylovaa/tasker/internal/storage"
	"github.com/pribylovaa/tasker/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "tasker",
		Audience:        []string{"tasker-api"},
		BcryptCost:      bcrypt.MinCost,
	}
}

// clock: управляемые часы для тестов TTL.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newSvc: сервис на gomock-хранилищах; удобно для проверки взаимодействий.
func newSvc(t *testing.T) (*Service, *mocks.MockUserStorage, *mocks.MockSessionStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStorage(ctrl)
	sessions := mocks.NewMockSessionStore(ctrl)
	return New(users, sessions, testCfg()), users, sessions
}

// newFlowSvc: сервис на реальном MemoryStore и gomock-пользователях,
// для сценариев login → refresh → logout.
func newFlowSvc(t *testing.T, clk *clock) (*Service, *models.User, string) {
	t.Helper()

	const password = "secret"
	h := hasher.New(bcrypt.MinCost)
	hash, err := h.Hash(password)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "a@x.com",
		Username:     "a",
		PasswordHash: hash,
	}

	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStorage(ctrl)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(user, nil).AnyTimes()

	store := cache.NewMemoryStore(24*time.Hour)
	opts := []Option{WithHasher(h)}
	if clk != nil {
		opts = append(opts, WithClock(clk.Now))
	}

	return New(users, store, testCfg(), opts...), user, password
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)

	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(nil, storage.ErrNotFound)
	users.EXPECT().SaveUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
		require.Equal(t, "a@x.com", u.Email)
		require.Equal(t, "a", u.Username)
		require.NotEqual(t, "secret", u.PasswordHash)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")))
		return nil
	})

	pub, err := svc.Register(context.Background(), " A@x.com ", "a", "secret")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, pub.ID)
	require.Equal(t, "a@x.com", pub.Email)
	require.Equal(t, "a", pub.Username)
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(&models.User{ID: uuid.New()}, nil)

	_, err := svc.Register(context.Background(), "a@x.com", "a", "secret")
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, "User with email a@x.com already exists.", MessageOf(err))
}

func TestRegister_ConflictOnInsertRace(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(nil, storage.ErrNotFound)
	users.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(fmt.Errorf("storage.postgres.SaveUser: %w", storage.ErrAlreadyExists))

	_, err := svc.Register(context.Background(), "a@x.com", "a", "secret")
	require.ErrorIs(t, err, ErrConflict)
}

func TestRegister_InvalidArguments(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	tests := []struct {
		name                      string
		email, username, password string
		want                      error
	}{
		{"empty_email", "", "a", "secret", ErrEmailRequired},
		{"bad_email", "not-an-email", "a", "secret", ErrEmailInvalid},
		{"empty_username", "a@x.com", "  ", "secret", ErrUsernameRequired},
		{"empty_password", "a@x.com", "a", "", ErrPasswordRequired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.username, tt.password)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(nil, storage.ErrNotFound)

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}

	_, err := svc.Register(context.Background(), "a@x.com", "a", string(long))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestRegister_StorageDown(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(nil, errors.New("conn refused"))

	_, err := svc.Register(context.Background(), "a@x.com", "a", "secret")
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLogin_OK_ExactlyOnePut(t *testing.T) {
	t.Parallel()

	svc, users, sessions := newSvc(t)

	hash, err := hasher.New(bcrypt.MinCost).Hash("secret")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: hash}

	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(user, nil)

	var stored string
	sessions.EXPECT().
		Put(gomock.Any(), user.ID.String(), gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, _, value string, _ time.Duration) error {
			stored = value
			return nil
		}).
		Times(1)

	pair, err := svc.Login(context.Background(), "A@X.com", "secret")
	require.NoError(t, err)
	require.Equal(t, user.ID, pair.UserID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, Digest(pair.RefreshToken), stored)
	require.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))

	sub, err := svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, sub)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)

	hash, err := hasher.New(bcrypt.MinCost).Hash("secret")
	require.NoError(t, err)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(&models.User{ID: uuid.New(), PasswordHash: hash}, nil)

	_, err = svc.Login(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, "Invalid credentials", MessageOf(err))
	require.Equal(t, KindUnauthorized, KindOf(err))
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	users.EXPECT().UserByEmail(gomock.Any(), "nobody@x.com").Return(nil, storage.ErrNotFound)

	_, err := svc.Login(context.Background(), "nobody@x.com", "secret")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "User with email nobody@x.com not found.", MessageOf(err))
}

func TestLogin_SessionStoreDown_IsNotUnauthorized(t *testing.T) {
	t.Parallel()

	svc, users, sessions := newSvc(t)

	hash, err := hasher.New(bcrypt.MinCost).Hash("secret")
	require.NoError(t, err)
	users.EXPECT().UserByEmail(gomock.Any(), "a@x.com").Return(&models.User{ID: uuid.New(), PasswordHash: hash}, nil)
	sessions.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("cache.redis.Put: %w", cache.ErrUnavailable))

	_, err = svc.Login(context.Background(), "a@x.com", "secret")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, cache.ErrUnavailable)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_Missing(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	for _, tok := range []string{"", "   "} {
		_, err := svc.Refresh(context.Background(), tok)
		require.ErrorIs(t, err, ErrRefreshTokenMissing)
		require.Equal(t, "Refresh token is missing", MessageOf(err))
	}
}

func TestRefresh_Malformed(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)

	_, err := svc.Refresh(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefresh_AccessTokenIsNotRefreshToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFlowSvc(t, nil)
	pair, err := svc.Login(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefresh_Expired(t *testing.T) {
	t.Parallel()

	clk := newClock()
	svc, _, password := newFlowSvc(t, clk)

	pair, err := svc.Login(context.Background(), "a@x.com", password)
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefresh_RotationRejectsPreviousToken(t *testing.T) {
	t.Parallel()

	svc, _, password := newFlowSvc(t, nil)
	ctx := context.Background()

	first, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenNotExist)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_ChainYieldsUsableAccessTokens(t *testing.T) {
	t.Parallel()

	svc, user, password := newFlowSvc(t, nil)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sub, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, sub)

		pair, err = svc.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
	}

	sub, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, sub)
}

func TestLogout_ThenRefreshRejected(t *testing.T) {
	t.Parallel()

	svc, user, password := newFlowSvc(t, nil)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))
	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenNotExist)

	// Access-токен живёт до своего exp.
	sub, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, sub)
}

func TestLogin_SecondDeviceEvictsFirstSession(t *testing.T) {
	t.Parallel()

	svc, _, password := newFlowSvc(t, nil)
	ctx := context.Background()

	first, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenNotExist)

	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	svc, _, password := newFlowSvc(t, nil)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		losses atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrRefreshTokenNotExist):
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, 15, losses.Load())
}

func TestRefresh_SessionStoreDown_IsNotUnauthorized(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newSvc(t)

	// Подписанный refresh-токен для произвольного субъекта.
	tok, _, err := svc.codec.Issue(uuid.New(), "refresh", time.Hour)
	require.NoError(t, err)

	sessions.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, fmt.Errorf("x: %w", cache.ErrUnavailable))

	_, err = svc.Refresh(context.Background(), tok)
	require.ErrorIs(t, err, ErrUnavailable)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_SwapLost(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newSvc(t)
	sub := uuid.New()

	tok, _, err := svc.codec.Issue(sub, "refresh", time.Hour)
	require.NoError(t, err)

	gomock.InOrder(
		sessions.EXPECT().Exists(gomock.Any(), sub.String()).Return(true, nil),
		sessions.EXPECT().Swap(gomock.Any(), sub.String(), Digest(tok), gomock.Any(), time.Hour).Return(false, nil),
	)

	_, err = svc.Refresh(context.Background(), tok)
	require.ErrorIs(t, err, ErrRefreshTokenNotExist)
}

func TestLogout_Errors(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newSvc(t)

	err := svc.Logout(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrSubjectRequired)

	sessions.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(fmt.Errorf("x: %w", cache.ErrUnavailable))
	err = svc.Logout(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestValidateAccessToken_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clk := newClock()
	svc, user, password := newFlowSvc(t, clk)
	ctx := context.Background()

	pair, err := svc.Login(ctx, "a@x.com", password)
	require.NoError(t, err)

	clk.Advance(time.Minute - time.Second)
	sub, err := svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, sub)

	clk.Advance(2 * time.Second)
	_, err = svc.ValidateAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrAccessTokenExpired)
	require.Equal(t, "Token has expired", MessageOf(err))
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)
	ctx := context.Background()

	_, err := svc.ValidateAccessToken(ctx, "")
	require.ErrorIs(t, err, ErrAccessTokenMissing)

	_, err = svc.ValidateAccessToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrAccessTokenInvalid)

	refresh, _, err := svc.codec.Issue(uuid.New(), "refresh", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(ctx, refresh)
	require.ErrorIs(t, err, ErrAccessTokenInvalid)

	other := New(nil, nil, config.AuthConfig{
		JWTSecret:       "other-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "tasker",
		Audience:        []string{"tasker-api"},
	})
	forged, _, err := other.codec.Issue(uuid.New(), "access", time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(ctx, forged)
	require.ErrorIs(t, err, ErrAccessTokenInvalid)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	svc, users, _ := newSvc(t)
	id := uuid.New()

	users.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, Email: "a@x.com", Username: "a", PasswordHash: "h"}, nil)
	pub, err := svc.Profile(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "a", pub.Username)

	missing := uuid.New()
	users.EXPECT().UserByID(gomock.Any(), missing).Return(nil, storage.ErrNotFound)
	_, err = svc.Profile(context.Background(), missing)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, fmt.Sprintf("User with id %s not found.", missing), MessageOf(err))
}

type recMetrics struct {
	mu   sync.Mutex
	seen []string
}

func (m *recMetrics) Observe(op, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, op+":"+result)
}

func TestSetMetrics_ObservesResults(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)
	rec := &recMetrics{}
	svc.SetMetrics(rec)

	_, _ = svc.Refresh(context.Background(), "")
	_, _ = svc.ValidateAccessToken(context.Background(), "garbage")

	require.Equal(t, []string{"refresh:unauthorized", "validate:unauthorized"}, rec.seen)

	svc.SetMetrics(nil)
	_, _ = svc.Refresh(context.Background(), "")
	require.Len(t, rec.seen, 2)
}
