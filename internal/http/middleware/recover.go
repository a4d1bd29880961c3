package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/tasker/internal/errors"
	logctx "github.com/pribylovaa/tasker/internal/pkg/log"
)

var errPanic = errors.New("handler panicked")

// Recover отвечает 500 с единым конвертом на панику обработчика. Детали
// паники уходят только в лог. http.ErrAbortHandler пробрасывается дальше,
// чтобы net/http оборвал соединение.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseRecorder(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				// Recover внешний: логгер запроса ещё не в контексте, но RequestID
				// уже записал id в общий r.Header.
				logctx.From(r.Context()).Error("panic_recovered",
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				// Если заголовки уже ушли, второй ответ не пишем.
				if !rw.written() {
					apierrors.WriteError(rw, r, errPanic)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
