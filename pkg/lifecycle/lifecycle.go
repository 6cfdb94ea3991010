// Package lifecycle drives the engine server from a resolved configuration
// to a listening socket, and back down on shutdown.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/config"
	"github.com/casperlabs/engine-grpc-server/pkg/engine"
	"github.com/casperlabs/engine-grpc-server/pkg/server"
	"github.com/casperlabs/engine-grpc-server/pkg/socket"
)

// DefaultShutdownTimeout bounds how long in-flight calls may drain.
const DefaultShutdownTimeout = 5 * time.Second

// Log messages emitted around the listening socket.
const (
	MsgRemovingSocket = "removing old socket file"
	MsgListening      = "{listener} is listening on socket: {socket}"
	MsgStopping       = "stopping Execution Engine Server"
)

// Option configures a Manager.
type Option func(*Manager)

// WithListenerName sets the name reported in the listening message.
func WithListenerName(name string) Option {
	return func(m *Manager) { m.listener = name }
}

// WithBootstrapOptions passes options to engine.Bootstrap.
func WithBootstrapOptions(opts ...engine.BootstrapOption) Option {
	return func(m *Manager) { m.bootstrapOpts = append(m.bootstrapOpts, opts...) }
}

// WithServerOptions passes options to server.New.
func WithServerOptions(opts ...server.Option) Option {
	return func(m *Manager) { m.serverOpts = append(m.serverOpts, opts...) }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) { m.shutdownTimeout = d }
}

// Manager sequences storage bootstrap, server startup and shutdown.
type Manager struct {
	listener        string
	bootstrapOpts   []engine.BootstrapOption
	serverOpts      []server.Option
	shutdownTimeout time.Duration

	mu    sync.RWMutex
	phase Phase
}

// NewManager returns a manager in PhaseUnconfigured.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		listener:        logger.DefaultProcessName,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Phase returns the current phase.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

func (m *Manager) advance(p Phase) {
	m.mu.Lock()
	if p <= m.phase {
		m.mu.Unlock()
		return
	}
	from := m.phase
	m.phase = p
	m.mu.Unlock()

	logger.Debug("lifecycle phase changed", "from", from.String(), logger.KeyPhase, p.String())
}

func (m *Manager) fail(op string, err error) error {
	return &Error{Phase: m.Phase(), Op: op, Err: err}
}

// Start bootstraps storage under cfg.StorageDir and then runs the server
// until ctx is cancelled or the server fails.
func (m *Manager) Start(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return m.fail("configure", errors.New("configuration is required"))
	}
	m.advance(PhaseConfigured)

	es, err := engine.Bootstrap(ctx, cfg.StorageDir, m.bootstrapOpts...)
	if err != nil {
		return m.fail("", err)
	}

	return m.Run(ctx, cfg, es)
}

// Run serves es on cfg.SocketPath. A stale socket file is removed first.
// Run blocks until ctx is cancelled, in which case the server is stopped
// gracefully and Run returns nil, or until the server stops on its own.
// Run owns es and closes it before returning.
func (m *Manager) Run(ctx context.Context, cfg *config.Config, es *engine.EngineState) (err error) {
	m.advance(PhaseStorageReady)

	sock := socket.New(cfg.SocketPath)
	defer func() {
		if closeErr := es.Close(); closeErr != nil && err == nil {
			err = m.fail("release engine state", closeErr)
		}
	}()

	if sock.Exists() {
		logger.Info(MsgRemovingSocket, logger.KeySocket, sock.Path())
		if err := sock.Remove(); err != nil {
			return m.fail("remove socket", err)
		}
	}

	srv, err := server.New(sock.Path(), es, m.serverOpts...).Build()
	if err != nil {
		return m.fail("start server", err)
	}
	m.advance(PhaseListening)

	logger.LogProps(logger.LevelInfo, MsgListening, map[string]string{
		logger.KeyListener: m.listener,
		logger.KeySocket:   sock.Path(),
	})

	m.advance(PhaseBlocked)

	select {
	case <-ctx.Done():
	case serveErr := <-srv.Done():
		if serveErr == nil {
			serveErr = errors.New("engine server stopped unexpectedly")
		}
		m.advance(PhaseStopped)
		return m.fail("serve", serveErr)
	}

	logger.Info(MsgStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	stopErr := srv.Stop(stopCtx)
	rmErr := sock.Remove()
	m.advance(PhaseStopped)

	if err := errors.Join(stopErr, rmErr); err != nil {
		return m.fail("shutdown", err)
	}
	return nil
}

// Run serves es on cfg.SocketPath with a default manager.
func Run(ctx context.Context, cfg *config.Config, es *engine.EngineState) error {
	return NewManager().Run(ctx, cfg, es)
}
