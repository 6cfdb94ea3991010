package main

import (
	"fmt"
	"os"

	"github.com/casperlabs/engine-grpc-server/cmd/engine-grpc-server/commands"
	"github.com/casperlabs/engine-grpc-server/internal/logger"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.RecoverAndLog(commands.MsgStopping)

	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		logger.Fatal(err.Error())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
