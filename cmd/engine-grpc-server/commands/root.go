// Package commands implements the engine-grpc-server command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/casperlabs/engine-grpc-server/pkg/config"
	"github.com/casperlabs/engine-grpc-server/pkg/lifecycle"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// MsgStopping is logged when the process goes down.
const MsgStopping = lifecycle.MsgStopping

// NewRootCmd builds the server command with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "engine-grpc-server <socket>",
		Short: "Execution Engine gRPC server",
		Long: `engine-grpc-server serves the execution engine over gRPC on a Unix socket.

Global state is kept under <data-dir>/global_state. A stale socket file at
the given path is removed before binding.

Examples:
  # Serve on /tmp/engine.sock with the default data directory (~/.casperlabs)
  engine-grpc-server /tmp/engine.sock --loglevel info

  # Use a custom data directory
  engine-grpc-server /tmp/engine.sock --loglevel debug -d /var/lib/casperlabs`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v.Set(config.KeySocket, args[0])
			return runServer(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyLogLevel, "", "Log level (fatal|error|warning|info|debug); unknown values mean info")
	flags.StringP(config.KeyDataDir, "d", "", "Data directory (default: $HOME/.casperlabs)")
	_ = cmd.MarkFlagRequired(config.KeyLogLevel)

	if err := bindFlags(v, flags, config.KeyLogLevel, config.KeyDataDir); err != nil {
		panic(err)
	}

	return cmd
}

// bindFlags binds each named flag to the viper key of the same name.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(name, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
