package main

import (
	"context"
	"fmt"

	"chatdragon/internal/actors"
	"chatdragon/internal/api"
	"chatdragon/internal/config"
	"chatdragon/internal/debug"
	"chatdragon/internal/director"
	"chatdragon/internal/llm"
	"chatdragon/internal/logging"
	"chatdragon/internal/mcp"
	"chatdragon/internal/observability"
	"chatdragon/internal/prompts"
	"chatdragon/internal/telemetry"
)

// app holds the process-wide singletons. Everything in it is built once in
// createApp and only read afterwards.
type app struct {
	client    *llm.Client
	director  *director.Director
	generator *actors.Generator
	server    *api.Server
}

func createApp(cfg *config.Config) (*app, func(), error) {
	debugLogger := debug.NewLogger(cfg.Server.Debug, cfg.Server.DebugLogPath)

	ctx := context.Background()
	tracerProvider, err := observability.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	var completionLog *logging.CompletionLogger
	if cfg.CompletionLog.Path != "" {
		completionLog, err = logging.NewCompletionLogger(cfg.CompletionLog.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize completion logger: %w", err)
		}
		debugLogger.Printf("Recording completions to %s", cfg.CompletionLog.Path)
	}

	cleanup := func() {
		completionLog.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
		debugLogger.Close()
	}

	client := llm.NewClient(cfg.AzureOpenAI, debugLogger,
		llm.WithCompletionLogger(completionLog),
		llm.WithMetrics(metrics),
		llm.WithTracer(tracerProvider.Tracer("llm-client")),
	)

	functions, err := prompts.Load()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to compile prompt templates: %w", err)
	}

	registry, err := director.NewRegistry(client, functions...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to register prompt functions: %w", err)
	}
	debugLogger.Printf("Registered functions: %v", registry.Names())

	a := &app{
		client:    client,
		director:  director.NewDirector(registry, client, debugLogger, metrics),
		generator: actors.NewGenerator(registry, debugLogger, metrics),
	}

	opts := api.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        metrics,
		DebugLogger:    debugLogger,
	}
	if cfg.MCP.Enabled {
		opts.MCPHandler = mcp.NewHandler(mcp.NewServer(registry, cfg.Telemetry.ServiceVersion, debugLogger, metrics))
		debugLogger.Println("MCP tools served at /mcp")
	}
	a.server = api.NewServer(a.director, a.generator, opts)

	return a, cleanup, nil
}
