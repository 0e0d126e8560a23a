// Package app provides the MoKITUL API server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/cmd/mokitul-api/app/options"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "mokitul-api"

	commandDesc = `MoKITUL Conversation API

The retrieval augmented chat backend for the MoKITUL Moodle learning platform.

This server provides:
  - Conversation management scoped to Moodle courses and files
  - On-demand PDF ingestion into a Milvus vector index
  - Hybrid dense and sparse retrieval with rank fusion
  - LLM answer generation with document citations`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
