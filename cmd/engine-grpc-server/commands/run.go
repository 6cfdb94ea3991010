package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casperlabs/engine-grpc-server/internal/logger"
	"github.com/casperlabs/engine-grpc-server/pkg/config"
	"github.com/casperlabs/engine-grpc-server/pkg/engine"
	"github.com/casperlabs/engine-grpc-server/pkg/lifecycle"
	"github.com/casperlabs/engine-grpc-server/pkg/metrics"
	promrec "github.com/casperlabs/engine-grpc-server/pkg/metrics/prometheus"
	"github.com/casperlabs/engine-grpc-server/pkg/server"
	"github.com/casperlabs/engine-grpc-server/pkg/storage"
)

func runServer(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Resolve(v)
	if err != nil {
		return err
	}

	logger.Init(cfg.LogSettings(logger.DefaultProcessName))
	logger.Info("starting Execution Engine Server",
		"version", Version,
		logger.KeySocket, cfg.SocketPath,
		logger.KeyPath, cfg.StorageDir,
		"loglevel", cfg.LogLevel.String(),
	)

	metrics.InitRegistry()

	// SIGINT and SIGTERM cancel the context; Start then shuts down cleanly.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := lifecycle.NewManager(
		lifecycle.WithBootstrapOptions(
			engine.WithStorageOptions(storage.WithMetrics(promrec.NewStorageMetrics())),
		),
		lifecycle.WithServerOptions(server.WithMetrics(promrec.NewRPCMetrics())),
	)
	return m.Start(ctx, cfg)
}
