package observability

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// PutMetricDataAPI is the slice of the CloudWatch client Metrics needs
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CounterSink receives business counters. Implementations must not block
// the caller on failure.
type CounterSink interface {
	IncrementCounter(ctx context.Context, name string, dimensions map[string]string)
}

// Metrics publishes business counters to CloudWatch
type Metrics struct {
	namespace string
	client    PutMetricDataAPI
	logger    *zap.Logger
	now       func() time.Time
}

// NewMetrics creates a new metrics instance. A nil client makes every call
// a no-op.
func NewMetrics(namespace string, client PutMetricDataAPI, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// IncrementCounter records one occurrence of name
func (m *Metrics) IncrementCounter(ctx context.Context, name string, dimensions map[string]string) {
	if m.client == nil {
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Dimensions: toDimensions(dimensions),
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(m.now()),
			},
		},
	}

	// Metrics never fail the operation being measured
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("Failed to send metric",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}

func toDimensions(dimensions map[string]string) []types.Dimension {
	if len(dimensions) == 0 {
		return nil
	}
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dimensions[name]),
		})
	}
	return out
}

// NoopMetrics discards every counter
type NoopMetrics struct{}

func (NoopMetrics) IncrementCounter(context.Context, string, map[string]string) {}

// FanOut forwards each counter to every sink
type FanOut []CounterSink

func (f FanOut) IncrementCounter(ctx context.Context, name string, dimensions map[string]string) {
	for _, sink := range f {
		sink.IncrementCounter(ctx, name, dimensions)
	}
}
