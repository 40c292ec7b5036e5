package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-bookorder-desk/internal/app"
	"github.com/imrishuroy/go-bookorder-desk/internal/config"
	"github.com/imrishuroy/go-bookorder-desk/internal/handlers"
	"github.com/imrishuroy/go-bookorder-desk/internal/logging"
)

func setupRouter(c *app.Components) *gin.Engine {
	cfg := handlers.HandlerConfig{
		Orders:         c.Workflow,
		MetricsHandler: promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}),
	}
	// a typed nil would defeat the handler's nil check
	if c.Idempotency != nil {
		cfg.Idempotency = c.Idempotency
	}
	return handlers.NewRouter(cfg)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Env, cfg.LogLevel)
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build components")
	}
	defer components.Close()

	r := setupRouter(components)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("running local server")
		if err := r.Run(cfg.HTTPAddr); err != nil {
			log.Fatal().Err(err).Msg("local server stopped")
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
