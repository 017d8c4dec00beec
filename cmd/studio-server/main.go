// Package main provides the entry point for the opencode-studio HTTP
// orchestrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/souky-byte/opencode-studio/internal/config"
	"github.com/souky-byte/opencode-studio/internal/engine"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/logging"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/internal/project"
	"github.com/souky-byte/opencode-studio/internal/server"
)

var (
	port      = flag.Int("port", 8080, "Server port")
	directory = flag.String("directory", "", "Project directory to open at startup")
	logLevel  = flag.String("log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	version   = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("studio-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(*logLevel),
		Output: os.Stderr,
		Pretty: true,
	})

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			logging.Logger.Fatal().Err(err).Msg("get working directory")
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		logging.Logger.Fatal().Err(err).Msg("create data directories")
	}

	projectCfg, err := config.Load(workDir)
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("load project configuration")
	}

	backend := opencodeclient.New(opencodeclient.Config{
		BaseURL: projectCfg.BackendURL,
		APIKey:  projectCfg.APIKey,
	})

	bus := event.New()
	manager := project.NewManager(bus, engine.NewExecutorFactory(backend))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := manager.Open(ctx, workDir); err != nil {
		cancel()
		logging.Logger.Fatal().Err(err).Str("path", workDir).Msg("open project")
	}
	cancel()

	srvCfg := server.DefaultConfig()
	srvCfg.Port = *port

	srv := server.New(srvCfg, manager)

	go func() {
		logging.Logger.Info().Int("port", *port).Str("path", workDir).Msg("studio-server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info().Msg("shutting down studio-server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error().Err(err).Msg("server shutdown")
	}
	if err := manager.Close(); err != nil {
		logging.Logger.Error().Err(err).Msg("close project")
	}

	logging.Logger.Info().Msg("studio-server stopped")
}
