package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/cortexhq/cortex/internal/api"
	"github.com/cortexhq/cortex/internal/chat"
	"github.com/cortexhq/cortex/internal/config"
	"github.com/cortexhq/cortex/internal/ingest"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/llmutil"
	"github.com/cortexhq/cortex/internal/metrics"
	"github.com/cortexhq/cortex/internal/observability"
	"github.com/cortexhq/cortex/internal/registry"
	"github.com/cortexhq/cortex/internal/server"
	"github.com/cortexhq/cortex/internal/source"
	"github.com/cortexhq/cortex/internal/temporal"
	"github.com/cortexhq/cortex/internal/tui"
	"github.com/cortexhq/cortex/internal/vector/qdrant"
	"github.com/cortexhq/cortex/internal/workspace"
)

const version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "cortex",
		Short: "Repository chat service: ingest codebases, chat with them",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/cortex.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <repo_url> <name>",
		Short: "Clone and index a repository, then exit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configPath, args[0], args[1])
		},
	}

	var plainChat bool
	chatCmd := &cobra.Command{
		Use:   "chat <context>",
		Short: "Chat with an ingested context from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath, args[0], plainChat)
		},
	}
	chatCmd.Flags().BoolVar(&plainChat, "plain", false, "Line-based prompt instead of the full-screen UI")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  anthropic      (native Messages API; completions only)")
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in cortex.yaml or via environment:")
			fmt.Println("  CORTEX_LLM_PROVIDER=openai")
			fmt.Println("  CORTEX_LLM_API_KEY=sk-...")
			fmt.Println("  CORTEX_LLM_MODEL=gpt-4o-mini")
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, chatCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *qdrant.Store
	provider llm.Provider
	registry *registry.Registry
	sessions *chat.Cache
	service  *ingest.Service
	metrics  *metrics.Metrics
}

func buildApp(configPath string, withMetrics bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(context.Background()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	store, err := qdrant.New(cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	provider, err := llmutil.NewProvider(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if withMetrics {
		m = metrics.New()
	}

	reg := registry.New(cfg.Ingest.RegistryPath)
	sessions := chat.NewCache(provider, store, chat.Options{TopK: cfg.Vector.TopK}, logger)
	service := ingest.NewService(
		workspace.NewManager(cfg.Ingest.ScratchDir, logger),
		source.NewLoader(cfg.Ingest.ExtraExtensions, cfg.Ingest.ExtraExcludes),
		store,
		provider,
		reg,
		sessions,
		m,
		ingest.Options{
			ChunkSize:      cfg.Ingest.ChunkSize,
			ChunkOverlap:   cfg.Ingest.ChunkOverlap,
			EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
			CloneTimeout:   cfg.Ingest.CloneTimeout,
		},
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		provider: provider,
		registry: reg,
		sessions: sessions,
		service:  service,
		metrics:  m,
	}, nil
}

func runServe(configPath string) error {
	a, err := buildApp(configPath, true)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "cortex",
		ServiceVersion: version,
		Environment:    a.cfg.Tracing.Environment,
		OTLPEndpoint:   a.cfg.Tracing.OTLPEndpoint,
		SampleRate:     a.cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	var audit *observability.AuditLogger
	if a.cfg.Log.AuditPath != "" {
		audit, err = observability.NewAuditLogger(a.cfg.Log.AuditPath)
		if err != nil {
			return err
		}
	}

	var dispatcher ingest.Dispatcher
	var temporalClient temporalclient.Client
	if a.cfg.Temporal.Host != "" {
		temporalClient, err = temporalclient.Dial(temporalclient.Options{
			HostPort:  a.cfg.Temporal.Host,
			Namespace: a.cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("temporal client: %w", err)
		}
		dispatcher = temporal.NewDispatcher(temporalClient, a.cfg.Temporal.TaskQueue, a.logger)
		a.logger.Info("using temporal dispatcher", "task_queue", a.cfg.Temporal.TaskQueue)
	} else {
		dispatcher = ingest.NewLocalDispatcher(a.service, 3, a.logger)
		a.logger.Info("temporal not configured, running ingestion in-process")
	}

	srv := api.NewServer(
		a.service, dispatcher, a.sessions, a.store, a.registry, a.metrics, audit,
		api.Options{
			Host:           a.cfg.Server.Host,
			Port:           a.cfg.Server.Port,
			RequestTimeout: a.cfg.Server.RequestTimeout,
			WebhookSecret:  a.cfg.Server.WebhookSecret,
		},
		a.logger,
	)

	shutdown := server.NewShutdownHandler(0, a.logger)
	shutdown.Register(server.HTTPServerShutdownHook("api", srv.Shutdown))
	shutdown.Register(server.TracingShutdownHook(tracing.Shutdown))
	shutdown.Register(server.VectorStoreShutdownHook(a.store.Close))
	if temporalClient != nil {
		shutdown.Register(server.ShutdownHook{Name: "temporal-client", Priority: 85, Fn: func(context.Context) error {
			temporalClient.Close()
			return nil
		}})
	}
	if audit != nil {
		shutdown.Register(server.AuditLoggerShutdownHook(audit.Close))
	}
	shutdown.Start()

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			a.logger.Error("http server failed", "error", err)
			shutdown.Shutdown()
		}
	}()

	shutdown.Wait()
	a.logger.Info("server stopped")
	return nil
}

func runIngest(configPath, repoURL, name string) error {
	a, err := buildApp(configPath, false)
	if err != nil {
		return err
	}
	defer a.store.Close()

	contextID := ingest.SanitizeContextID(name)
	if contextID == "" {
		return fmt.Errorf("name %q has no usable characters", name)
	}

	if err := a.service.IngestRepository(context.Background(), repoURL, contextID); err != nil {
		return err
	}
	fmt.Printf("Ingested %s as context %q\n", repoURL, contextID)
	return nil
}

func runChat(configPath, contextID string, plain bool) error {
	a, err := buildApp(configPath, false)
	if err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	session, err := a.sessions.Get(ctx, contextID)
	if err != nil {
		return err
	}

	if !plain {
		return tui.RunChat(session, contextID)
	}

	fmt.Printf("Chatting with context %q. Type 'exit' or 'quit' to leave.\n", contextID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		answer, err := session.Ask(ctx, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Println(answer)
		fmt.Println()
	}
	return scanner.Err()
}
