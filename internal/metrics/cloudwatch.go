package metrics

import (
	"context"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
)

// CloudWatchRecorder publishes durations and a creation count per record.
type CloudWatchRecorder struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewCloudWatchRecorder returns a recorder writing to namespace.
func NewCloudWatchRecorder(client aws.CloudWatchAPI, namespace string) *CloudWatchRecorder {
	return &CloudWatchRecorder{client: client, namespace: namespace, nowFunc: time.Now}
}

func (c *CloudWatchRecorder) RecordOrderCreation(ctx context.Context, r Record) {
	now := c.nowFunc()
	dims := []cwtypes.Dimension{
		{Name: sdkaws.String("Category"), Value: sdkaws.String(labelOrUnknown(r.Category))},
		{Name: sdkaws.String("Outcome"), Value: sdkaws.String(r.Outcome())},
	}
	millis := func(name string, d time.Duration) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: sdkaws.String(name),
			Dimensions: dims,
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitMilliseconds,
			Value:      sdkaws.Float64(float64(d) / float64(time.Millisecond)),
		}
	}

	data := []cwtypes.MetricDatum{
		{
			MetricName: sdkaws.String("OrderCreations"),
			Dimensions: dims,
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitCount,
			Value:      sdkaws.Float64(1),
		},
		millis("ValidationDuration", r.ValidationDuration),
		millis("DatabaseDuration", r.DatabaseDuration),
		millis("TotalDuration", r.TotalDuration),
	}

	// a canceled request must still report its metrics
	_, err := c.client.PutMetricData(context.WithoutCancel(ctx), &cloudwatch.PutMetricDataInput{
		Namespace:  &c.namespace,
		MetricData: data,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("operation_id", r.OperationID).Msg("put metric data failed")
	}
}

func labelOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
