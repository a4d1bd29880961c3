package grpc

import (
	"log/slog"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/tasker/internal/interceptors"
)

// ServerOptions: параметры сборки gRPC-сервера.
type ServerOptions struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	Reflection bool
	// Metrics включает grpc_prometheus-интерсепторы.
	Metrics bool
}

// NewServer собирает gRPC-сервер с цепочкой интерсепторов, health-сервисом
// и зарегистрированным Identity. Health стартует в NOT_SERVING; перевести
// в SERVING должен вызывающий, когда всё готово.
func NewServer(v Validator, opts ServerOptions) (*grpc.Server, *health.Server) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	unary := []grpc.UnaryServerInterceptor{
		interceptors.Recover(log),
		interceptors.UnaryLoggingInterceptor(log),
		interceptors.WithTimeout(opts.Timeout),
	}
	var stream []grpc.StreamServerInterceptor
	if opts.Metrics {
		grpc_prometheus.EnableHandlingTimeHistogram()
		unary = append(unary, grpc_prometheus.UnaryServerInterceptor)
		stream = append(stream, grpc_prometheus.StreamServerInterceptor)
	}
	unary = append(unary, interceptors.IdentityUnary(v, PublicMethods))

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	RegisterIdentityServer(srv, NewIdentityServer(v))

	if opts.Reflection {
		reflection.Register(srv)
	}
	if opts.Metrics {
		grpc_prometheus.Register(srv)
	}

	return srv, hs
}
