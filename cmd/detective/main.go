// Command detective serves the plagiarism detective API: lexical similarity
// scoring plus model-backed comparison, analysis, grammar and summary checks.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/config"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/flows"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/history"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/llm"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/server"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/vault"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", envOr("DETECTIVE_CONFIG", ""), "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	providerURL := flag.String("provider", "", "upstream LLM provider (overrides config)")
	model := flag.String("model", "", "model name (overrides config)")
	runsDir := flag.String("runs", "", "run record output directory (overrides config)")
	historyPath := flag.String("history", "", "history database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	override(&cfg.Server.Addr, *addr)
	override(&cfg.LLM.ProviderURL, *providerURL)
	override(&cfg.LLM.Model, *model)
	override(&cfg.Recorder.Dir, *runsDir)
	override(&cfg.History.Path, *historyPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- OTel tracing setup ---
	tp, err := initTracer(ctx, cfg.Tracing)
	if err != nil {
		log.Printf("WARN: OTel tracing disabled: %v", err)
	} else if tp != nil {
		defer tp.Shutdown(context.Background())
		log.Printf("OTel tracing: %s", cfg.Tracing.Endpoint)
	}

	// --- Vault setup (best-effort; the service works without it) ---
	var vc *vault.Client
	if cfg.Vault.Endpoint != "" {
		vc, err = vault.New(ctx, vault.Config{
			Endpoint:  cfg.Vault.Endpoint,
			AccessKey: cfg.Vault.AccessKey,
			SecretKey: cfg.Vault.SecretKey,
			Bucket:    cfg.Vault.Bucket,
			UseSSL:    cfg.Vault.UseSSL,
		})
		if err != nil {
			log.Printf("WARN: vault disabled: %v (model traffic will not be stored)", err)
			vc = nil
		} else {
			log.Printf("Vault connected: %s", cfg.Vault.Endpoint)
		}
	} else {
		log.Println("WARN: VAULT_ENDPOINT not set, vault storage disabled")
	}

	// --- Recorder setup ---
	rec, err := recorder.NewWriter(cfg.Recorder.Dir)
	if err != nil {
		log.Printf("WARN: run recording disabled: %v", err)
		rec = nil
	} else {
		log.Printf("Run records: %s", cfg.Recorder.Dir)
	}

	// --- History setup ---
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Printf("WARN: history disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
		log.Printf("History: %s (newest %d kept)", cfg.History.Path, history.MaxItems)
	}

	if cfg.LLM.APIKey == "" {
		log.Println("WARN: OPENAI_API_KEY not set, model-backed checks will fail")
	}
	opts := []llm.Option{llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts)}
	if vc != nil {
		opts = append(opts, llm.WithVault(vc))
	}
	if rec != nil {
		opts = append(opts, llm.WithRecorder(rec))
	}
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		ProviderURL:    cfg.LLM.ProviderURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, opts...)

	// --- Gateway authentication ---
	if cfg.Server.GatewayKey != "" {
		log.Println("Gateway authentication: enabled (X-Gateway-Key header required)")
	} else {
		log.Println("Gateway authentication: disabled (set GATEWAY_KEY to require auth)")
	}

	handler := server.Handler(server.Config{
		Flows:      flows.New(client),
		History:    store,
		GatewayKey: cfg.Server.GatewayKey,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.LLM.TimeoutSeconds*cfg.LLM.MaxAttempts+30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Plagiarism Detective listening on %s → %s (%s)", cfg.Server.Addr, cfg.LLM.ProviderURL, cfg.LLM.Model)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	srv.Shutdown(shutCtx)
}

// initTracer returns a nil provider when no endpoint is configured.
func initTracer(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
