//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/flood-risk-service/internal/adapter/kafka"
	"github.com/riverwatch/flood-risk-service/internal/config"
	"github.com/riverwatch/flood-risk-service/internal/domain"
	"github.com/riverwatch/flood-risk-service/internal/observability"
	"github.com/riverwatch/flood-risk-service/internal/pipeline"
)

const testSinkTopic = "test-assessments"

// publishedMessage holds a deserialized message read from the sink topic.
type publishedMessage struct {
	Assessment domain.Assessment
	Key        string
	Headers    map[string]string
}

// readPublished reads a single message from the sink consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var a domain.Assessment
	require.NoError(t, json.Unmarshal(msg.Value, &a), "unmarshal sink message")

	return publishedMessage{Assessment: a, Key: string(msg.Key), Headers: headers}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaWriter verifies the adapter layer: kafka.Writer round-trips a
// cycle of assessments through Kafka with ordering keys and headers intact.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	assessedAt := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	assessments := []domain.Assessment{
		{
			Watershed: domain.WatershedSnapshot{
				ID:                   "08057000",
				Name:                 "Trinity Rv at Dallas, TX",
				CurrentStreamflowCFS: 44200,
				FloodStageCFS:        49000,
				RiskScore:            5.6,
				RiskLevel:            "MODERATE",
				Trend:                "rising",
				TrendRateCFSPerHour:  310,
				LastUpdated:          assessedAt,
			},
			Risk:       domain.ComputeRisk(domain.DefaultMeasurement()),
			AssessedAt: assessedAt,
		},
		{
			Watershed: domain.WatershedSnapshot{
				ID:                   "08048000",
				Name:                 "West Fork Trinity Rv at Fort Worth, TX",
				CurrentStreamflowCFS: 3400,
				FloodStageCFS:        30000,
				RiskScore:            4.4,
				RiskLevel:            "MODERATE",
				Trend:                "stable",
				LastUpdated:          assessedAt,
			},
			Risk:       domain.ComputeRisk(domain.DefaultMeasurement()),
			AssessedAt: assessedAt,
		},
	}

	require.NoError(t, writer.Publish(ctx, assessments))

	consumer := sinkConsumer(t, broker)

	byKey := map[string]publishedMessage{}
	for range assessments {
		pm := readPublished(ctx, t, consumer)
		byKey[pm.Key] = pm
	}

	dallas, ok := byKey["08057000"]
	require.True(t, ok, "expected message keyed by site 08057000")
	assert.Equal(t, "MODERATE", dallas.Headers["risk_level"])
	assert.Equal(t, "2025-06-15T12:00:00Z", dallas.Headers["assessed_at"])
	assert.Equal(t, "Trinity Rv at Dallas, TX", dallas.Assessment.Watershed.Name)
	assert.Equal(t, 44200.0, dallas.Assessment.Watershed.CurrentStreamflowCFS)
	assert.Equal(t, "rising", dallas.Assessment.Watershed.Trend)
	assert.True(t, dallas.Assessment.AssessedAt.Equal(assessedAt))

	fortWorth, ok := byKey["08048000"]
	require.True(t, ok, "expected message keyed by site 08048000")
	assert.Equal(t, "stable", fortWorth.Assessment.Watershed.Trend)
}

// ── Collector stubs for the end-to-end test ──

type stubGauges struct{ readings []domain.SiteReading }

func (s stubGauges) FetchReadings(_ context.Context, _ []string) ([]domain.SiteReading, error) {
	return s.readings, nil
}

type stubCatalog struct{}

func (stubCatalog) SiteInfo(_ context.Context, code string) (domain.SiteInfo, error) {
	return domain.SiteInfo{
		Code:             code,
		Name:             "Trinity Rv at Dallas, TX",
		Lat:              32.774,
		Lon:              -96.794,
		DrainageAreaSqMi: 6106,
	}, nil
}

type stubAlerts struct{}

func (stubAlerts) FetchFloodAlerts(_ context.Context) ([]domain.FloodAlert, error) {
	return []domain.FloodAlert{{ID: "alert-1", Event: "Flood Warning", Severity: "Severe"}}, nil
}

type stubWeather struct{}

func (stubWeather) Rainfall(_ context.Context, _, _ float64) (float64, float64, error) {
	return 12, 30, nil
}

func (stubWeather) RiverDischarge(_ context.Context, _, _ float64, days int) ([]float64, error) {
	out := make([]float64, days)
	for i := range out {
		out[i] = 44000
	}
	return out, nil
}

// TestPipelinePublishesToKafka wires the assessment pipeline with stub
// collectors and a real Kafka sink and verifies that a cycle's assessments
// arrive on the topic.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:    []string{broker},
		KafkaSinkTopic:  testSinkTopic,
		USGSSites:       []string{"08057000"},
		CollectInterval: time.Minute,
	}

	observedAt := time.Now().UTC().Truncate(time.Second)
	gauges := stubGauges{readings: []domain.SiteReading{{
		SiteCode:     "08057000",
		SiteName:     "Trinity Rv at Dallas, TX",
		Lat:          32.774,
		Lon:          -96.794,
		FlowCFS:      44200,
		GageHeightFT: 38.2,
		ObservedAt:   observedAt,
	}}}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(cfg, gauges, stubCatalog{}, stubAlerts{}, stubWeather{}, writer,
		discardLogger(), metrics)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	pm := readPublished(ctx, t, consumer)

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, "08057000", pm.Key)
	assert.Equal(t, "Trinity Rv at Dallas, TX", pm.Assessment.Watershed.Name)
	assert.Equal(t, 6106.0, pm.Assessment.Watershed.BasinSizeSqMi)
	assert.Equal(t, 44200.0, pm.Assessment.Watershed.CurrentStreamflowCFS)
	assert.Equal(t, 49000.0, pm.Assessment.Watershed.FloodStageCFS)
	assert.True(t, pm.Assessment.Watershed.LastUpdated.Equal(observedAt))

	// One active alert plus rain near flood stage makes this an immediate risk.
	assert.True(t, pm.Assessment.Risk.ImmediateRisk)
	assert.NotEmpty(t, pm.Headers["risk_level"])
	assert.Equal(t, pm.Headers["risk_level"], pm.Assessment.Watershed.RiskLevel)

	_, err := time.Parse(time.RFC3339, pm.Headers["assessed_at"])
	assert.NoError(t, err, "assessed_at should be valid RFC3339")

	require.NoError(t, p.CheckReadiness(ctx))
	dash := p.Dashboard()
	assert.Len(t, dash.Watersheds, 1)
	assert.Len(t, dash.ActiveAlerts, 1)
}
