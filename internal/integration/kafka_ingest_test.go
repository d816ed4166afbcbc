//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-dashboard/internal/adapter/geodata"
	"github.com/couchcryptid/crime-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/crime-dashboard/internal/config"
	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
	"github.com/couchcryptid/crime-dashboard/internal/pipeline"
)

const testIncidentTopic = "test-incidents"

// TestIncidentIngestion produces incident features to a topic and checks that
// the pipeline appends them to the running session.
func TestIncidentIngestion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testIncidentTopic)

	hoods, err := geodata.ReadNeighborhoods(strings.NewReader(neighborhoodsJSON), geodata.DefaultNameProperty)
	require.NoError(t, err)
	ds, err := geodata.ReadIncidents("incidents.csv", strings.NewReader(incidentsCSV()))
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	session := dashboard.NewSession(dashboard.Settings{AttributeByLocation: true}, discardLogger(), metrics)
	session.Load(ds, hoods, "incidents.csv")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testIncidentTopic}
	t.Cleanup(func() { _ = producer.Close() })
	msgs := make([]kafkago.Message, 5)
	for i := range msgs {
		msgs[i] = kafkago.Message{
			Key: []byte(fmt.Sprintf("stream-%d", i)),
			Value: []byte(`{"type":"Feature","properties":{"tipo_crimen":"Hurto","fecha":"2024-04-01","hora":"21:00"},
				"geometry":{"type":"Point","coordinates":[0.5,1.5]}}`),
		}
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaIncidentTopic: testIncidentTopic,
		KafkaGroupID:       fmt.Sprintf("test-ingest-%d", time.Now().UnixNano()),
		BatchFlushInterval: 500 * time.Millisecond,
	}
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	p := pipeline.New(reader, pipeline.NewDecoder(), session, discardLogger(), metrics, 10)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	require.Eventually(t, func() bool {
		snap, err := session.Snapshot()
		return err == nil && len(snap.Dataset.Incidents) == 17
	}, 60*time.Second, 200*time.Millisecond)
	stop()
	require.NoError(t, <-done)

	stats, err := session.Ranking(domain.FilterCriteria{}, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Centro", stats[0].Name)
	assert.Equal(t, 12, stats[0].Count)
	assert.Equal(t, "Norte", stats[1].Name)
	assert.Equal(t, 5, stats[1].Count, "streamed incidents are attributed by location")
	assert.True(t, p.Ready())
}
