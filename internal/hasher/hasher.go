// hasher реализует одностороннее хэширование паролей (bcrypt).
// Пароли в открытом виде не логируются и не сохраняются.
package hasher

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong: bcrypt не принимает пароли длиннее 72 байт.
var ErrPasswordTooLong = errors.New("password is too long")

// Hasher: контракт хэширования паролей.
type Hasher interface {
	// Hash возвращает солёный хэш пароля; два вызова с одним паролем дают разные хэши.
	Hash(password string) (string, error)
	// Verify сверяет пароль с хэшем за константное время; битый хэш -> false.
	Verify(password, hash string) bool
}

// Bcrypt: реализация Hasher поверх golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// New возвращает Bcrypt с заданной стоимостью, приведённой к [MinCost, MaxCost].
// cost <= 0 означает bcrypt.DefaultCost.
func New(cost int) *Bcrypt {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}

	return &Bcrypt{cost: cost}
}

// Cost возвращает фактическую стоимость хэширования.
func (b *Bcrypt) Cost() int { return b.cost }

// Hash хэширует пароль с помощью bcrypt.
func (b *Bcrypt) Hash(password string) (string, error) {
	const op = "hasher.Hash"

	if len(password) > 72 {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// Verify сравнивает пароль с хэшем.
func (b *Bcrypt) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var _ Hasher = (*Bcrypt)(nil)
