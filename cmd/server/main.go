package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AlibekovAA/member-chat/internal/common/bootstrap"
	"github.com/AlibekovAA/member-chat/internal/common/config"
	"github.com/AlibekovAA/member-chat/internal/common/constants"
	"github.com/AlibekovAA/member-chat/internal/common/logger"
	srv "github.com/AlibekovAA/member-chat/internal/common/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogDir, "member-chat", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	app, err := bootstrap.New(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	log.Infof("storage backend: %s", cfg.StorageBackend)

	server := srv.New(cfg.HTTPPort, app.Handler)
	if err := srv.Run(context.Background(), server, log, app.ShutdownHooks()...); err != nil {
		_ = app.Close(context.Background())
		log.Fatalf("server stopped: %v", err)
	}
}
