package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws/awstest"
)

func sampleRecord(success bool) Record {
	r := Record{
		OperationID:        "op-1",
		Title:              "Advanced Programming Techniques",
		ISBN:               "9780134190440",
		Category:           "Technical",
		ValidationDuration: 3 * time.Millisecond,
		DatabaseDuration:   12 * time.Millisecond,
		TotalDuration:      20 * time.Millisecond,
		Success:            success,
	}
	if !success {
		r.ErrorReason = "Price must be greater than 0"
		r.DatabaseDuration = 0
	}
	return r
}

type captured struct {
	records []Record
}

func (c *captured) RecordOrderCreation(_ context.Context, r Record) {
	c.records = append(c.records, r)
}

func TestMulti_SkipsNilAndFansOut(t *testing.T) {
	a, b := &captured{}, &captured{}
	m := Multi(a, nil, b)

	m.RecordOrderCreation(context.Background(), sampleRecord(true))

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusRecorder(reg)

	p.RecordOrderCreation(context.Background(), sampleRecord(true))
	p.RecordOrderCreation(context.Background(), sampleRecord(false))
	p.RecordOrderCreation(context.Background(), sampleRecord(false))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.creations.WithLabelValues("Technical", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.creations.WithLabelValues("Technical", "failure")))

	// registering again reuses the collectors instead of panicking
	again := NewPrometheusRecorder(reg)
	assert.Same(t, p.creations, again.creations)
}

func TestCloudWatchRecorder(t *testing.T) {
	cw := &awstest.CloudWatch{}
	rec := NewCloudWatchRecorder(cw, "BookOrders")

	rec.RecordOrderCreation(context.Background(), sampleRecord(true))

	calls := cw.Inputs()
	require.Len(t, calls, 1)
	assert.Equal(t, "BookOrders", *calls[0].Namespace)
	require.Len(t, calls[0].MetricData, 4)
	assert.Equal(t, "OrderCreations", *calls[0].MetricData[0].MetricName)
	assert.Equal(t, 12.0, *calls[0].MetricData[2].Value)
	assert.Equal(t, "Outcome", *calls[0].MetricData[0].Dimensions[1].Name)
	assert.Equal(t, "success", *calls[0].MetricData[0].Dimensions[1].Value)
}

func TestCloudWatchRecorder_ErrorIsLoggedNotRaised(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	cw := &awstest.CloudWatch{Err: errors.New("throttled")}
	NewCloudWatchRecorder(cw, "BookOrders").RecordOrderCreation(ctx, sampleRecord(false))

	assert.Contains(t, buf.String(), "put metric data failed")
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	LogRecorder{}.RecordOrderCreation(ctx, sampleRecord(false))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "op-1", line["operation_id"])
	assert.Equal(t, false, line["success"])
	assert.Equal(t, "Price must be greater than 0", line["error_reason"])
}
