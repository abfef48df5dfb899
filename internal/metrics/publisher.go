// Package metrics publishes per-run ingestion metrics to CloudWatch so a
// stalled input is visible without reading logs.
package metrics

import (
	"context"
	"log"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/badrinath-dash/apigee-audit-connector/internal/aws"
)

const defaultNamespace = "ApigeeAuditConnector"

// Publisher sends run metrics to CloudWatch. A nil Publisher is a no-op, so
// callers never need to guard metric calls.
type Publisher struct {
	client    aws.CloudWatchAPI
	namespace string
}

// NewPublisher returns a Publisher for the given namespace ("" uses the
// connector default).
func NewPublisher(client aws.CloudWatchAPI, namespace string) *Publisher {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Publisher{client: client, namespace: namespace}
}

// RecordRun publishes the outcome of one pipeline run. Metric delivery is
// best-effort: failures are logged and swallowed, matching the checkpoint
// fail-soft policy.
func (p *Publisher) RecordRun(ctx context.Context, inputName string, eventsProcessed int64, duration time.Duration, failed bool) {
	if p == nil || p.client == nil {
		return
	}

	dims := []cwtypes.Dimension{
		{Name: sdkaws.String("Input"), Value: sdkaws.String(inputName)},
	}
	failures := 0.0
	if failed {
		failures = 1.0
	}
	now := time.Now()

	data := []cwtypes.MetricDatum{
		{
			MetricName: sdkaws.String("EventsProcessed"),
			Dimensions: dims,
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitCount,
			Value:      sdkaws.Float64(float64(eventsProcessed)),
		},
		{
			MetricName: sdkaws.String("RunDuration"),
			Dimensions: dims,
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitMilliseconds,
			Value:      sdkaws.Float64(float64(duration.Milliseconds())),
		},
		{
			MetricName: sdkaws.String("RunFailures"),
			Dimensions: dims,
			Timestamp:  &now,
			Unit:       cwtypes.StandardUnitCount,
			Value:      sdkaws.Float64(failures),
		},
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(p.namespace),
		MetricData: data,
	})
	if err != nil {
		log.Printf("[metrics] put metric data failed for input=%s: %v", inputName, err)
	}
}
