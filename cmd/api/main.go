package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
	"github.com/badrinath-dash/apigee-audit-connector/internal/checkpoint"
	"github.com/badrinath-dash/apigee-audit-connector/internal/config"
	"github.com/badrinath-dash/apigee-audit-connector/internal/credentials"
	"github.com/badrinath-dash/apigee-audit-connector/internal/handlers"
	"github.com/badrinath-dash/apigee-audit-connector/internal/metrics"
	"github.com/badrinath-dash/apigee-audit-connector/internal/pipeline"
	"github.com/badrinath-dash/apigee-audit-connector/internal/runs"
	"github.com/badrinath-dash/apigee-audit-connector/internal/sink"
	"github.com/badrinath-dash/apigee-audit-connector/internal/worker"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterInputRoutes(r, cfg)

	return r
}

func buildHandlerConfig(ctx context.Context) (handlers.HandlerConfig, error) {
	configPath := os.Getenv("CONNECTOR_CONFIG")
	if configPath == "" {
		configPath = "connector.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return handlers.HandlerConfig{}, err
	}

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return handlers.HandlerConfig{}, err
	}

	creds := &credentials.StaticProvider{Accounts: cfg.Accounts, Proxy: cfg.Proxy}
	checkpoints := checkpoint.NewStore(clients.DynamoDB, cfg.CheckpointTable)

	var runHistory pipeline.RunRecorder
	if cfg.RunsTable != "" {
		runHistory = runs.NewStore(clients.DynamoDB, cfg.RunsTable)
	}

	events := sink.NewSQSSink(clients.SQS, cfg.QueueURL)
	m := metrics.NewPublisher(clients.CloudWatch, cfg.MetricNamespace)

	return handlers.HandlerConfig{
		Config:      cfg,
		Checkpoints: checkpoints,
		Runner:      worker.NewRunner(cfg, creds, checkpoints, runHistory, events, m),
	}, nil
}

func main() {
	// best-effort: a missing .env just means env vars come from the host
	_ = godotenv.Load()

	hc, err := buildHandlerConfig(context.Background())
	if err != nil {
		log.Fatalf("failed to build handlers: %v", err)
	}

	r := setupRouter(hc)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		// the adapter handles proxying; use adapter.ProxyWithContext for proper context propagation
		return adapter.ProxyWithContext(ctx, req)
	})
}
