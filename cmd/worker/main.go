package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
	"github.com/badrinath-dash/apigee-audit-connector/internal/checkpoint"
	"github.com/badrinath-dash/apigee-audit-connector/internal/config"
	"github.com/badrinath-dash/apigee-audit-connector/internal/credentials"
	"github.com/badrinath-dash/apigee-audit-connector/internal/metrics"
	"github.com/badrinath-dash/apigee-audit-connector/internal/pipeline"
	"github.com/badrinath-dash/apigee-audit-connector/internal/runs"
	"github.com/badrinath-dash/apigee-audit-connector/internal/sink"
	"github.com/badrinath-dash/apigee-audit-connector/internal/worker"
)

func buildRunner(ctx context.Context) (*worker.Runner, error) {
	configPath := os.Getenv("CONNECTOR_CONFIG")
	if configPath == "" {
		configPath = "connector.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, err
	}

	creds := &credentials.StaticProvider{Accounts: cfg.Accounts, Proxy: cfg.Proxy}
	checkpoints := checkpoint.NewStore(clients.DynamoDB, cfg.CheckpointTable)

	var runHistory pipeline.RunRecorder
	if cfg.RunsTable != "" {
		runHistory = runs.NewStore(clients.DynamoDB, cfg.RunsTable)
	}

	events := sink.NewSQSSink(clients.SQS, cfg.QueueURL)
	m := metrics.NewPublisher(clients.CloudWatch, cfg.MetricNamespace)

	return worker.NewRunner(cfg, creds, checkpoints, runHistory, events, m), nil
}

func main() {
	// best-effort: a missing .env just means env vars come from the host
	_ = godotenv.Load()

	ctx := context.Background()
	runner, err := buildRunner(ctx)
	if err != nil {
		log.Fatalf("failed to build runner: %v", err)
	}

	// If RUN_LOCAL=true, run each input on its configured interval until
	// interrupted instead of waiting on scheduled Lambda invocations.
	if os.Getenv("RUN_LOCAL") == "true" {
		ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		log.Println("[worker] running locally; ctrl-c to stop")
		runner.RunLoop(ctx)
		return
	}

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) error {
		log.Printf("[worker] scheduled invocation source=%s", ev.Source)
		runner.RunAll(ctx)
		return nil
	})
}
