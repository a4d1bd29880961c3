// tokens выпускает и проверяет подписанные JWT (HS256) с идентификатором субъекта
// и сроком действия. Кодек не хранит состояния, кроме секрета из конфигурации:
// отзыв refresh-токенов обеспечивается хранилищем сессий поверх него.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/tasker/internal/config"
)

var (
	// ErrInvalid: токен повреждён, подделан, подписан другим ключом/алгоритмом
	// или предназначен для другого назначения.
	ErrInvalid = errors.New("token is invalid")
	// ErrExpired: подпись корректна, но срок действия истёк.
	ErrExpired = errors.New("token has expired")
)

// Kind: назначение токена; кладётся в claim "typ".
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Payload: проверенное содержимое токена.
type Payload struct {
	ID        string
	Subject   uuid.UUID
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claims struct {
	Type Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет токены общим секретом процесса.
type Codec struct {
	secret   []byte
	issuer   string
	audience []string
	leeway   time.Duration
	now      func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов границ срока действия).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New создаёт Codec по конфигурации auth.
func New(cfg config.AuthConfig, opts ...Option) *Codec {
	c := &Codec{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Issue выпускает токен назначения kind для subject со сроком now+ttl.
// jti уникален, поэтому два токена, выпущенные в одну секунду, различаются.
func (c *Codec) Issue(subject uuid.UUID, kind Kind, ttl time.Duration) (string, Payload, error) {
	const op = "tokens.Issue"

	now := c.now().UTC().Truncate(jwt.TimePrecision)
	p := Payload{
		ID:        uuid.NewString(),
		Subject:   subject,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	cl := claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.ID,
			Subject:   subject.String(),
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings(c.audience),
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", Payload{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, p, nil
}

// Verify проверяет подпись, затем срок действия и назначение токена.
// Подделанный токен всегда даёт ErrInvalid, даже если он ещё и просрочен:
// подпись проверяется до claims.
func (c *Codec) Verify(token string, kind Kind) (Payload, error) {
	const op = "tokens.Verify"

	if token == "" {
		return Payload{}, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.leeway),
	}
	if len(c.audience) > 0 {
		opts = append(opts, jwt.WithAudience(c.audience[0]))
	}

	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Payload{}, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return Payload{}, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	if !parsed.Valid || cl.Type != kind {
		return Payload{}, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	subject, err := uuid.Parse(cl.Subject)
	if err != nil || subject == uuid.Nil {
		return Payload{}, fmt.Errorf("%s: %w", op, ErrInvalid)
	}

	p := Payload{
		ID:      cl.ID,
		Subject: subject,
		Kind:    cl.Type,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time.UTC()
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time.UTC()
	}

	return p, nil
}
