package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/tasker/internal/cache"
)

// Kind: класс ошибки на границе сервиса. В транспортные коды
// превращается только во внешних слоях (internal/errors, interceptors).
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error описывает неуспешную операцию: класс, стабильное сообщение
// для клиента и (опционально) внутренняя причина, которая наружу не отдаётся.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по классу; если у target задано сообщение: ещё и по нему.
// Так errors.Is(err, ErrUnauthorized) ловит любой 401, а
// errors.Is(err, ErrRefreshTokenMissing): только конкретный случай.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t.Kind != e.Kind {
		return false
	}

	return t.Message == "" || t.Message == e.Message
}

// Классы целиком.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Конкретные отказы со стабильными сообщениями; клиенты и тесты
// полагаются на точную формулировку.
var (
	ErrInvalidCredentials   = &Error{Kind: KindUnauthorized, Message: "Invalid credentials"}
	ErrRefreshTokenMissing  = &Error{Kind: KindUnauthorized, Message: "Refresh token is missing"}
	ErrRefreshTokenInvalid  = &Error{Kind: KindUnauthorized, Message: "Refresh token is invalid"}
	ErrRefreshTokenExpired  = &Error{Kind: KindUnauthorized, Message: "Refresh token has expired"}
	ErrRefreshTokenNotExist = &Error{Kind: KindUnauthorized, Message: "Refresh token does not exist"}
	ErrAccessTokenMissing   = &Error{Kind: KindUnauthorized, Message: "Access token is missing"}
	ErrAccessTokenInvalid   = &Error{Kind: KindUnauthorized, Message: "Token is invalid"}
	ErrAccessTokenExpired   = &Error{Kind: KindUnauthorized, Message: "Token has expired"}

	ErrEmailRequired    = &Error{Kind: KindInvalidArgument, Message: "Email is required"}
	ErrEmailInvalid     = &Error{Kind: KindInvalidArgument, Message: "Email is invalid"}
	ErrUsernameRequired = &Error{Kind: KindInvalidArgument, Message: "Username is required"}
	ErrPasswordRequired = &Error{Kind: KindInvalidArgument, Message: "Password is required"}
	ErrPasswordTooLong  = &Error{Kind: KindInvalidArgument, Message: "Password is too long"}
	ErrSubjectRequired  = &Error{Kind: KindInvalidArgument, Message: "Subject is required"}
)

func userExists(email string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("User with email %s already exists.", email)}
}

func userNotFoundByEmail(email string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("User with email %s not found.", email)}
}

func userNotFoundByID(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("User with id %s not found.", id)}
}

// sessionFailure: сбой хранилища сессий никогда не выдаётся за 401.
func sessionFailure(err error) *Error {
	if errors.Is(err, cache.ErrUnavailable) || isContextErr(err) {
		return &Error{Kind: KindUnavailable, Message: "Session store is unavailable", Err: err}
	}

	return &Error{Kind: KindInternal, Message: "Internal error", Err: err}
}

func storageFailure(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "Credential storage is unavailable", Err: err}
}

func internalFailure(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal error", Err: err}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// KindOf возвращает класс ошибки; всё, что не *Error, считается Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// MessageOf возвращает клиентское сообщение ошибки.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}

	return "Internal error"
}
