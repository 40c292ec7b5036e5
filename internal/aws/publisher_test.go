package aws_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
	"github.com/imrishuroy/go-bookorder-desk/internal/aws/awstest"
)

func TestPublishOrderEvent(t *testing.T) {
	q := &awstest.SQS{}
	p := aws.NewPublisher(q, "https://sqs.local/orders")

	err := p.PublishOrderEvent(context.Background(), aws.OrderEvent{
		Type:    aws.EventOrderCreated,
		OrderID: "o-1",
		ISBN:    "9780134190440",
	})
	require.NoError(t, err)

	sent := q.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://sqs.local/orders", *sent[0].QueueUrl)

	var ev aws.OrderEvent
	require.NoError(t, json.Unmarshal([]byte(*sent[0].MessageBody), &ev))
	assert.Equal(t, "o-1", ev.OrderID)
	assert.Equal(t, aws.EventOrderCreated, ev.Type)

	// empty correlation id is not sent as an attribute
	assert.Contains(t, sent[0].MessageAttributes, "order_id")
	assert.NotContains(t, sent[0].MessageAttributes, "correlation_id")
}

func TestPublishOrderEvent_SendFails(t *testing.T) {
	q := &awstest.SQS{Err: errors.New("queue unavailable")}
	p := aws.NewPublisher(q, "https://sqs.local/orders")

	err := p.PublishOrderEvent(context.Background(), aws.OrderEvent{Type: aws.EventOrderCreated, OrderID: "o-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message")
}
