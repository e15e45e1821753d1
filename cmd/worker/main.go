package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/cortexhq/cortex/internal/config"
	"github.com/cortexhq/cortex/internal/ingest"
	"github.com/cortexhq/cortex/internal/llmutil"
	"github.com/cortexhq/cortex/internal/registry"
	"github.com/cortexhq/cortex/internal/server"
	"github.com/cortexhq/cortex/internal/source"
	temporalmod "github.com/cortexhq/cortex/internal/temporal"
	"github.com/cortexhq/cortex/internal/vector/qdrant"
	"github.com/cortexhq/cortex/internal/workspace"
)

const healthAddr = ":8081"

func main() {
	configPath := "configs/cortex.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("config", err)
	}
	if err := cfg.ResolveSecrets(context.Background()); err != nil {
		fatal("secrets", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config", err)
	}
	if cfg.Temporal.Host == "" {
		fatal("config", fmt.Errorf("temporal.host is required for the worker"))
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	store, err := qdrant.New(cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Dimensions)
	if err != nil {
		fatal("qdrant", err)
	}

	provider, err := llmutil.NewProvider(cfg.LLM)
	if err != nil {
		fatal("llm provider", err)
	}

	// The worker has no chat surface, so no session cache to invalidate.
	service := ingest.NewService(
		workspace.NewManager(cfg.Ingest.ScratchDir, logger),
		source.NewLoader(cfg.Ingest.ExtraExtensions, cfg.Ingest.ExtraExcludes),
		store,
		provider,
		registry.New(cfg.Ingest.RegistryPath),
		nil,
		nil,
		ingest.Options{
			ChunkSize:      cfg.Ingest.ChunkSize,
			ChunkOverlap:   cfg.Ingest.ChunkOverlap,
			EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
			CloneTimeout:   cfg.Ingest.CloneTimeout,
		},
		logger,
	)
	temporalmod.SetDependencies(&temporalmod.Dependencies{Ingest: service})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		fatal("temporal client", err)
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		fatal("worker", err)
	}
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)

	health := server.NewHealthServer("")
	health.RegisterCheck("qdrant", server.VectorStoreCheck(store.ListCollections))
	health.SetReady(true)
	go func() {
		if err := health.ListenAndServe(healthAddr); err != nil {
			logger.Error("health server failed", "error", err)
		}
	}()

	shutdown := server.NewShutdownHandler(0, logger)
	shutdown.Register(server.ShutdownHook{Name: "health", Priority: 5, Fn: func(context.Context) error {
		health.Shutdown()
		return nil
	}})
	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.Register(server.ShutdownHook{Name: "temporal-client", Priority: 85, Fn: func(context.Context) error {
		c.Close()
		return nil
	}})
	shutdown.Register(server.VectorStoreShutdownHook(store.Close))
	shutdown.Start()
	shutdown.Wait()

	logger.Info("worker stopped")
}

func fatal(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
