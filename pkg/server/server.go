// Package server runs the execution engine gRPC service on a Unix socket.
//
// Engine messages are plain Go structs carried by an XDR codec registered
// under the "xdr" content-subtype. The standard gRPC health service is
// registered alongside and uses the default codec.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/engine"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	"github.com/casperlabs/engine-grpc-server/pkg/socket"
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	metrics    metrics.RPCMetrics
	serverOpts []grpc.ServerOption
}

// WithMetrics records per-call metrics.
func WithMetrics(m metrics.RPCMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithServerOptions passes extra options to grpc.NewServer.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(o *options) { o.serverOpts = append(o.serverOpts, opts...) }
}

// Builder collects what is needed to start a Server.
type Builder struct {
	socket socket.Socket
	es     *engine.EngineState
	opts   options
}

// New returns a builder for a server on the socket at path serving es.
func New(path string, es *engine.EngineState, opts ...Option) *Builder {
	b := &Builder{socket: socket.New(path), es: es}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Build binds the socket and starts serving in the background. The socket
// file must not exist.
func (b *Builder) Build() (*Server, error) {
	if b.es == nil {
		return nil, errors.New("engine state is required")
	}

	lis, err := b.socket.Listen()
	if err != nil {
		return nil, err
	}

	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unaryInterceptor(b.opts.metrics)),
	}, b.opts.serverOpts...)
	gs := grpc.NewServer(serverOpts...)

	RegisterExecutionEngineServer(gs, &engineService{es: b.es})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	s := &Server{
		id:       uuid.NewString(),
		grpc:     gs,
		health:   hs,
		listener: lis,
		socket:   b.socket,
		done:     make(chan error, 1),
	}

	go s.serve()

	logger.Debug("engine server started", logger.KeySocket, b.socket.Path(), logger.KeyInstanceID, s.id)
	return s, nil
}

// Server is a running engine gRPC server.
type Server struct {
	id       string
	grpc     *grpc.Server
	health   *health.Server
	listener net.Listener
	socket   socket.Socket
	done     chan error
	stopOnce sync.Once
}

func (s *Server) serve() {
	defer logger.RecoverAndLog("stopping Execution Engine Server")

	err := s.grpc.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("engine server failed: %w", err)
	}
	s.done <- err
	close(s.done)
}

// Done yields the serve result once the server stops: nil after Stop, an
// error if serving failed.
func (s *Server) Done() <-chan error {
	return s.done
}

// InstanceID identifies this server run in logs.
func (s *Server) InstanceID() string {
	return s.id
}

// Socket returns the socket the server listens on.
func (s *Server) Socket() socket.Socket {
	return s.socket
}

// Addr returns the listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop drains in-flight calls, forcing a hard stop if ctx expires first.
// It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.health.Shutdown()

		drained := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(drained)
		}()

		select {
		case <-drained:
			logger.Debug("engine server stopped gracefully")
		case <-ctx.Done():
			s.grpc.Stop()
			<-drained
			stopErr = fmt.Errorf("engine server shutdown: %w", ctx.Err())
			logger.Warn("engine server stopped forcefully", logger.KeyError, ctx.Err().Error())
		}
	})
	return stopErr
}
