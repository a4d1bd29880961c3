// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервиса (*service.Error с Kind), на выход даёт
// HTTP-статус и безопасное сообщение. Для клиентских классов (400/401/404/409)
// сообщение берётся из сервиса как есть: клиенты полагаются на точный текст.
// Для 5xx детали наружу не отдаются.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/tasker/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError: единый формат для фронта.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse: корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal;
//   - отмена клиентом - 499, дедлайн - 504;
//   - *service.Error - по Kind (InvalidArgument 400, Unauthorized 401,
//     NotFound 404, Conflict 409, Unavailable 503, прочее 500).
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, response("internal", "internal error")
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, response("canceled", "canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response("deadline_exceeded", "deadline exceeded")
	}

	switch service.KindOf(err) {
	case service.KindInvalidArgument:
		return http.StatusBadRequest, response("invalid_argument", service.MessageOf(err))
	case service.KindUnauthorized:
		return http.StatusUnauthorized, response("unauthorized", service.MessageOf(err))
	case service.KindNotFound:
		return http.StatusNotFound, response("not_found", service.MessageOf(err))
	case service.KindConflict:
		return http.StatusConflict, response("conflict", service.MessageOf(err))
	case service.KindUnavailable:
		return http.StatusServiceUnavailable, response("unavailable", "service unavailable")
	default:
		return http.StatusInternalServerError, response("internal", "internal error")
	}
}

// WriteError: хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func response(code, msg string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg}}
}
