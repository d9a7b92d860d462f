package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/bootstrap"
	"marriott_mcp/internal/mcp"
	"marriott_mcp/internal/shared"
)

var version = "dev"

func main() {
	cfg := shared.Load()

	// stdout carries protocol frames
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.AppEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	stack, err := bootstrap.Build(ctx, cfg, version)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	// one process serves one client, so one discovery session
	session := uuid.NewString()
	st := mcp.NewStdio(stack.Server, cfg.StdioWorkers, session)
	go func() {
		<-st.Ready()
		log.Info().Str("session", session).Int("workers", cfg.StdioWorkers).Msg("stdio server ready")
	}()

	if err := st.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("stdio serve failed")
	}

	if err := stack.Close(); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	if err := shutdownTracing(context.Background()); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
