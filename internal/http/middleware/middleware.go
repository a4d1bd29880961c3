// middleware содержит net/http-мидлвары HTTP-слоя: recover, request id,
// логирование, таймаут и Identity Guard для защищённых маршрутов.
package middleware

import (
	"net/http"
)

// Middleware: стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

// Chain оборачивает h так, что mws[0] выполняется первым.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := range mws {
		h = mws[len(mws)-1-i](h)
	}

	return h
}

// responseRecorder запоминает статус и число байт ответа для логирования.
// Unwrap позволяет http.ResponseController добраться до исходного writer'а.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w}
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(p []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += n

	return n, err
}

func (rw *responseRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Status возвращает записанный статус; если ничего не писали: 200.
func (rw *responseRecorder) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}

	return rw.status
}

func (rw *responseRecorder) written() bool { return rw.status != 0 }
