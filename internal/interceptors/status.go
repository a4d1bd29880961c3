package interceptors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/tasker/internal/service"
)

// ToStatus переводит ошибку сервиса в gRPC-статус. Для клиентских классов
// сообщение сервиса сохраняется, для 5xx-классов детали не раскрываются.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isServiceErr(err) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	msg := service.MessageOf(err)
	switch service.KindOf(err) {
	case service.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, msg)
	case service.KindUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case service.KindNotFound:
		return status.Error(codes.NotFound, msg)
	case service.KindConflict:
		return status.Error(codes.AlreadyExists, msg)
	case service.KindUnavailable:
		return status.Error(codes.Unavailable, "service unavailable")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

func isServiceErr(err error) bool {
	var e *service.Error
	return errors.As(err, &e)
}
