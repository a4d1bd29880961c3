package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/tasker/internal/config"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "tasker",
		Audience:        []string{"tasker-api"},
	}
}

// clock: управляемые часы для проверки границ срока действия.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := New(testCfg(), WithClock(clk.Now))
	uid := uuid.New()

	tok, issued, err := c.Issue(uid, KindAccess, time.Minute)
	require.NoError(t, err)
	require.Equal(t, clk.t, issued.IssuedAt)
	require.Equal(t, clk.t.Add(time.Minute), issued.ExpiresAt)

	got, err := c.Verify(tok, KindAccess)
	require.NoError(t, err)
	require.Equal(t, uid, got.Subject)
	require.Equal(t, KindAccess, got.Kind)
	require.Equal(t, issued.ID, got.ID)
	require.Equal(t, issued.ExpiresAt, got.ExpiresAt)
}

func TestIssue_UniquePerCall(t *testing.T) {
	t.Parallel()

	c := New(testCfg(), WithClock(newClock().Now))
	uid := uuid.New()

	a, _, err := c.Issue(uid, KindRefresh, time.Hour)
	require.NoError(t, err)
	b, _, err := c.Issue(uid, KindRefresh, time.Hour)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "tokens issued in the same second must differ")
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := New(testCfg(), WithClock(clk.Now))

	tok, p, err := c.Issue(uuid.New(), KindAccess, time.Minute)
	require.NoError(t, err)

	clk.t = p.ExpiresAt.Add(-time.Second)
	_, err = c.Verify(tok, KindAccess)
	require.NoError(t, err)

	clk.t = p.ExpiresAt.Add(time.Second)
	_, err = c.Verify(tok, KindAccess)
	require.ErrorIs(t, err, ErrExpired)
	require.NotErrorIs(t, err, ErrInvalid)
}

func TestVerify_Leeway(t *testing.T) {
	t.Parallel()

	clk := newClock()
	cfg := testCfg()
	cfg.Leeway = 5 * time.Second
	c := New(cfg, WithClock(clk.Now))

	tok, p, err := c.Issue(uuid.New(), KindAccess, time.Minute)
	require.NoError(t, err)

	clk.t = p.ExpiresAt.Add(3 * time.Second)
	_, err = c.Verify(tok, KindAccess)
	require.NoError(t, err)
}

func TestVerify_WrongKind(t *testing.T) {
	t.Parallel()

	c := New(testCfg())

	refresh, _, err := c.Issue(uuid.New(), KindRefresh, time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(refresh, KindAccess)
	require.ErrorIs(t, err, ErrInvalid)

	access, _, err := c.Issue(uuid.New(), KindAccess, time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(access, KindRefresh)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerify_ForgedAndExpired_IsInvalidNotExpired(t *testing.T) {
	t.Parallel()

	clk := newClock()
	other := testCfg()
	other.JWTSecret = "attacker-secret"

	forger := New(other, WithClock(clk.Now))
	c := New(testCfg(), WithClock(clk.Now))

	tok, p, err := forger.Issue(uuid.New(), KindAccess, time.Minute)
	require.NoError(t, err)

	_, err = c.Verify(tok, KindAccess)
	require.ErrorIs(t, err, ErrInvalid)

	clk.t = p.ExpiresAt.Add(time.Hour)
	_, err = c.Verify(tok, KindAccess)
	require.ErrorIs(t, err, ErrInvalid)
	require.NotErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := New(testCfg())

	for _, tok := range []string{"", "abc", "a.b.c", "Bearer x.y.z"} {
		_, err := c.Verify(tok, KindAccess)
		require.ErrorIs(t, err, ErrInvalid, "token %q", tok)
	}
}

func TestVerify_RejectsForeignClaims(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	secret := []byte(cfg.JWTSecret)
	now := time.Now().UTC()
	uid := uuid.New()

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"typ": string(KindAccess),
			"sub": uid.String(),
			"iss": cfg.Issuer,
			"aud": cfg.Audience,
			"iat": now.Unix(),
			"exp": now.Add(time.Minute).Unix(),
			"jti": uuid.NewString(),
		}
	}

	tcs := []struct {
		name   string
		mutate func(jwt.MapClaims)
		method jwt.SigningMethod
	}{
		{"wrong alg", func(jwt.MapClaims) {}, jwt.SigningMethodHS512},
		{"wrong issuer", func(m jwt.MapClaims) { m["iss"] = "another" }, jwt.SigningMethodHS256},
		{"wrong audience", func(m jwt.MapClaims) { m["aud"] = []string{"other"} }, jwt.SigningMethodHS256},
		{"subject not uuid", func(m jwt.MapClaims) { m["sub"] = "not-a-uuid" }, jwt.SigningMethodHS256},
		{"no exp", func(m jwt.MapClaims) { delete(m, "exp") }, jwt.SigningMethodHS256},
		{"no typ", func(m jwt.MapClaims) { delete(m, "typ") }, jwt.SigningMethodHS256},
	}

	c := New(cfg)
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			m := base()
			tc.mutate(m)

			signed, err := jwt.NewWithClaims(tc.method, m).SignedString(secret)
			require.NoError(t, err)

			_, err = c.Verify(signed, KindAccess)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestVerify_NoneAlgorithmRejected(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	now := time.Now().UTC()
	m := jwt.MapClaims{
		"typ": string(KindAccess),
		"sub": uuid.NewString(),
		"iss": cfg.Issuer,
		"aud": cfg.Audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, m).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = New(cfg).Verify(signed, KindAccess)
	require.ErrorIs(t, err, ErrInvalid)
}
