// Command docsync keeps a vector index in sync with a Notion workspace.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsync/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already carry secrets.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBuilder(build)

	err := cli.Execute(ctx)
	if cerr := cli.Shutdown(); cerr != nil {
		logger.Error("closing stores: %v", cerr)
	}
	stop()

	if err != nil {
		os.Exit(1)
	}
}
