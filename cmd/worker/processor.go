package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
	"github.com/imrishuroy/go-bookorder-desk/internal/logging"
)

// Processor consumes order events and keeps the order listing cache warm.
type Processor struct {
	refresher CacheRefresher
	orders    OrderGetter
}

// NewProcessor creates a new worker processor.
func NewProcessor(refresher CacheRefresher, orders OrderGetter) *Processor {
	return &Processor{refresher: refresher, orders: orders}
}

// Handle processes an SQS batch. The listing is rebuilt at most once per batch; messages that
// could not be handled are reported as batch item failures so SQS redelivers only those.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Int("messages", len(ev.Records)).Msg("received SQS batch")

	var (
		resp    events.SQSEventResponse
		pending []string
	)
	for _, rec := range ev.Records {
		refresh, err := p.inspect(ctx, rec)
		if err != nil {
			logger.Error().Err(err).Str("message_id", rec.MessageId).Msg("order event rejected")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
			continue
		}
		if refresh {
			pending = append(pending, rec.MessageId)
		}
	}
	if len(pending) == 0 {
		return resp, nil
	}

	n, err := p.refresher.RefreshOrderCache(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("refresh order cache failed")
		for _, id := range pending {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: id})
		}
		return resp, nil
	}
	logger.Info().Int("orders", n).Int("events", len(pending)).Msg("order cache refreshed")
	return resp, nil
}

// inspect decodes one message and reports whether it calls for a cache refresh.
func (p *Processor) inspect(ctx context.Context, rec events.SQSMessage) (bool, error) {
	var msg aws.OrderEvent
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return false, fmt.Errorf("invalid message body: %w", err)
	}

	ctx = logging.WithCorrelationID(ctx, msg.CorrelationID)
	logger := zerolog.Ctx(ctx).With().Str("order_id", msg.OrderID).Str("event", msg.Type).Logger()

	if msg.Type != aws.EventOrderCreated {
		logger.Warn().Msg("ignoring unknown event type")
		return false, nil
	}
	if msg.OrderID == "" {
		return false, fmt.Errorf("order_created event without order_id")
	}

	order, err := p.orders.Get(ctx, msg.OrderID)
	if err != nil {
		return false, fmt.Errorf("fetch order %s: %w", msg.OrderID, err)
	}
	if order == nil {
		// reads are consistent, so a missing order will not appear on redelivery
		logger.Warn().Msg("announced order not found, skipping")
		return false, nil
	}
	logger.Debug().Str("isbn", order.ISBN).Msg("order event accepted")
	return true, nil
}
