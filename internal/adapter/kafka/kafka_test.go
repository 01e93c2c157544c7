package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testPublisher(w messageWriter, metrics *observability.Metrics, now time.Time) *Publisher {
	return &Publisher{
		writer:  w,
		clock:   clockwork.NewFakeClockAt(now),
		metrics: metrics,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 15, 11, 50, 0, 0, time.UTC)
	d := domain.AutoDecision("ENZV", "18", []domain.RunwayEvaluation{
		{Designator: "18", HeadingDeg: 180, HeadwindKt: 12, CrosswindKt: 0},
	})

	msg, err := serializeToMessage(d, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("ENZV"), msg.Key)
	assert.Equal(t, now, msg.Time)
	assert.JSONEq(t, `{"icao":"ENZV","kind":"AUTO","runway":"18",
		"evaluations":[{"designator":"18","heading":180,"headwind_kt":12,"crosswind_kt":0}]}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "decision_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("AUTO"), msg.Headers[0].Value)
	assert.Equal(t, "decided_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestPublisher_PublishDecisions(t *testing.T) {
	fw := &fakeWriter{}
	metrics := observability.NewMetricsForTesting()
	p := testPublisher(fw, metrics, time.Date(2026, 3, 15, 11, 50, 0, 0, time.UTC))

	err := p.PublishDecisions(context.Background(), []domain.Decision{
		domain.AutoDecision("ENZV", "18", nil),
		domain.ManualDecision("ENGM", nil, "fog"),
	})
	require.NoError(t, err)

	require.Len(t, fw.msgs, 2)
	var got domain.Decision
	require.NoError(t, json.Unmarshal(fw.msgs[1].Value, &got))
	assert.Equal(t, domain.Manual, got.Kind)
	assert.Equal(t, []string{"fog"}, got.Reasons)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.DecisionsPublished), 0)

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestPublisher_Errors(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	metrics := observability.NewMetricsForTesting()
	p := testPublisher(fw, metrics, time.Now())

	require.NoError(t, p.PublishDecisions(context.Background(), nil))

	err := p.PublishDecisions(context.Background(), []domain.Decision{domain.AutoDecision("ENZV", "18", nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.DecisionsPublished), 0)
}
