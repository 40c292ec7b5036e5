package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/imrishuroy/go-bookorder-desk/internal/app"
	"github.com/imrishuroy/go-bookorder-desk/internal/config"
	"github.com/imrishuroy/go-bookorder-desk/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("build components")
	}
	defer components.Close()

	p := NewProcessor(components.Workflow, components.Repository)

	// If RUN_LOCAL=true, process a single simulated SQS event and exit.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"type":"order_created","order_id":"local-order-1"}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(log.Logger.WithContext(ctx), event)
		if err != nil {
			log.Fatal().Err(err).Msg("local handler error")
		}
		log.Info().Int("failures", len(resp.BatchItemFailures)).Msg("local event processed")
		return
	}

	lambda.Start(func(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
		return p.Handle(log.Logger.WithContext(ctx), ev)
	})
}
