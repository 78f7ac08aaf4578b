package events

import (
	"context"
	"testing"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func startTestNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestPublish_RoundTrip(t *testing.T) {
	srv := startTestNATS(t)
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	got := make(chan LookupCompleted, 1)
	sub, err := Subscribe(nc, "warranty.test", func(_ context.Context, ev LookupCompleted) {
		got <- ev
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })

	p := NewNATSPublisher(nc, "warranty.test")
	rec := models.NewRecord("5434REB2F", "Trane", "american_standard")
	rec.LookupStatus = models.StatusNotFound
	rec.Error = "Serial number not found"
	require.NoError(t, p.Publish(context.Background(), rec))

	select {
	case ev := <-got:
		require.NotNil(t, ev.Record)
		assert.Equal(t, models.StatusNotFound, ev.Record.LookupStatus)
		assert.Equal(t, "5434REB2F", ev.Record.SerialNumber)
		assert.False(t, ev.CompletedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	assert.NoError(t, p.Close(), "borrowed connection is left open")
	assert.False(t, nc.IsClosed())
}

func TestPublish_PropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	srv := startTestNATS(t)
	p, err := Connect(srv.ClientURL(), "warranty.traced")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	got := make(chan trace.SpanContext, 1)
	_, err = Subscribe(nc, "warranty.traced", func(ctx context.Context, _ LookupCompleted) {
		got <- trace.SpanContextFromContext(ctx)
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	rec := models.NewRecord("2419E12345", "Carrier", "carrier")
	rec.LookupStatus = models.StatusSuccess
	require.NoError(t, p.Publish(ctx, rec))

	select {
	case remote := <-got:
		assert.Equal(t, traceID, remote.TraceID())
		assert.True(t, remote.IsRemote())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "warranty.none")
	assert.Error(t, err)
}
