package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/bootstrap"
	"marriott_mcp/internal/mcp"
	"marriott_mcp/internal/shared"
)

var version = "dev"

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv)

	connect := func(ctx context.Context) (*mcp.Registry, func(), error) {
		stack, err := bootstrap.Build(ctx, cfg, version)
		if err != nil {
			return nil, nil, err
		}
		return stack.Server.Tools(), func() { _ = stack.Close() }, nil
	}
	if err := newRootCmd(connect).Execute(); err != nil {
		if !errors.Is(err, errToolFailed) {
			fmt.Fprintln(os.Stderr, "hotelctl:", err)
		}
		os.Exit(1)
	}
}
